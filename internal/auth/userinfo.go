package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"fan-quiz-service/internal/domain"
)

type userInfo struct {
	Sub   string `json:"sub"`
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func fetchUserInfo(ctx context.Context, client *http.Client, url string) (domain.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.User{}, fmt.Errorf("build userinfo request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.User{}, fmt.Errorf("fetch userinfo: status %d: %s", resp.StatusCode, body)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return domain.User{}, fmt.Errorf("decode userinfo: %w", err)
	}
	id := info.Sub
	if id == "" {
		id = info.ID
	}
	if id == "" {
		return domain.User{}, fmt.Errorf("userinfo response has no subject")
	}
	return domain.User{ID: id, Email: info.Email, DisplayName: info.Name}, nil
}
