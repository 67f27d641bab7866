package parser

// mochawesomeReport is the raw mochawesome JSON document. Every field is optional;
// defaults are applied during normalization.
type mochawesomeReport struct {
	Stats   *mochawesomeStats   `json:"stats"`
	Results []mochawesomeResult `json:"results"`
}

type mochawesomeStats struct {
	Duration *float64 `json:"duration"`
}

// mochawesomeResult is a top-level result block, usually one per spec file
type mochawesomeResult struct {
	Title    *string            `json:"title"`
	FullFile *string            `json:"fullFile"`
	Tests    []mochawesomeTest  `json:"tests"`
	Suites   []mochawesomeSuite `json:"suites"`
}

type mochawesomeSuite struct {
	Title  *string            `json:"title"`
	Tests  []mochawesomeTest  `json:"tests"`
	Suites []mochawesomeSuite `json:"suites"`
}

type mochawesomeTest struct {
	Title     string            `json:"title"`
	FullTitle string            `json:"fullTitle"`
	Duration  *float64          `json:"duration"`
	Pass      bool              `json:"pass"`
	Fail      bool              `json:"fail"`
	Pending   bool              `json:"pending"`
	Skipped   bool              `json:"skipped"`
	Err       *mochawesomeError `json:"err"`
}

type mochawesomeError struct {
	Message *string `json:"message"`
	EStack  *string `json:"estack"`
	Diff    *string `json:"diff"`
}
