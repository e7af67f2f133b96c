package quiz

// View is the read-only projection handed to a presentation layer.
// The correct option stays hidden until the answer is locked.
type View struct {
	QuestionNumber  int          `json:"questionNumber"`
	TotalQuestions  int          `json:"totalQuestions"`
	Progress        float64      `json:"progress"`
	Question        QuestionView `json:"question"`
	SelectedOption  *int         `json:"selectedOption"`
	AnswerLocked    bool         `json:"answerLocked"`
	Score           int          `json:"score"`
	ScorePercentage int          `json:"scorePercentage"`
	ResultsVisible  bool         `json:"resultsVisible"`
	Result          *Result      `json:"result,omitempty"`
}

// QuestionView is a question without its answer key.
type QuestionView struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	Options []OptionView `json:"options"`
}

// OptionView carries per-option feedback; nil flags mean "not yet known".
type OptionView struct {
	Index       int    `json:"index"`
	Text        string `json:"text"`
	Correct     *bool  `json:"correct,omitempty"`
	MarkedWrong *bool  `json:"markedWrong,omitempty"`
}

// Result summarizes a finished session.
type Result struct {
	Score      int    `json:"score"`
	Total      int    `json:"total"`
	Wrong      int    `json:"wrong"`
	Percentage int    `json:"percentage"`
	Tier       Tier   `json:"tier"`
	Message    string `json:"message"`
}

// Snapshot projects the session state into a View.
func (s *Session) Snapshot() View {
	q := s.CurrentQuestion()
	options := make([]OptionView, len(q.Options))
	for i, text := range q.Options {
		opt := OptionView{Index: i, Text: text}
		if correct, ok := s.IsOptionCorrect(i); ok {
			opt.Correct = &correct
		}
		if wrong, ok := s.IsOptionMarkedWrong(i); ok {
			opt.MarkedWrong = &wrong
		}
		options[i] = opt
	}

	view := View{
		QuestionNumber:  s.QuestionNumber(),
		TotalQuestions:  s.TotalQuestions(),
		Progress:        s.ProgressFraction(),
		Question:        QuestionView{ID: q.ID, Text: q.Text, Options: options},
		AnswerLocked:    s.answerLocked,
		Score:           s.score,
		ScorePercentage: s.ScorePercentage(),
		ResultsVisible:  s.resultsVisible,
	}
	if selected, ok := s.SelectedOption(); ok {
		view.SelectedOption = &selected
	}
	if s.resultsVisible {
		result := s.Result()
		view.Result = &result
	}
	return view
}

// Result reports the score summary, whether or not results are visible yet.
func (s *Session) Result() Result {
	tier := s.Tier()
	return Result{
		Score:      s.score,
		Total:      len(s.questions),
		Wrong:      s.WrongAnswers(),
		Percentage: s.ScorePercentage(),
		Tier:       tier,
		Message:    tier.Message(),
	}
}
