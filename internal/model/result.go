package model

// Failure records one transaction that could not be imported.
type Failure struct {
	Description string
	Err         error
}

// ImportResult holds per-account counts for one reconciliation run.
type ImportResult struct {
	AccountNumber string
	AccountLabel  string
	Fetched       int
	Imported      int
	Duplicates    int
	Failed        int
	Failures      []Failure
	// Err is set when the whole account was aborted (e.g. the existing
	// ledger transactions could not be listed). The counts then reflect
	// work done before the abort.
	Err error
}

// RunSummary aggregates results across all accounts of a run.
type RunSummary struct {
	Accounts        []ImportResult
	AccountsSkipped int
	AccountsFailed  int
}

// Add folds one account result into the summary.
func (s *RunSummary) Add(r ImportResult) {
	s.Accounts = append(s.Accounts, r)
	if r.Err != nil {
		s.AccountsFailed++
	}
}

// TotalFetched returns the number of transactions fetched across accounts.
func (s *RunSummary) TotalFetched() int {
	n := 0
	for _, r := range s.Accounts {
		n += r.Fetched
	}
	return n
}

// TotalImported returns the number of transactions imported across accounts.
func (s *RunSummary) TotalImported() int {
	n := 0
	for _, r := range s.Accounts {
		n += r.Imported
	}
	return n
}

// TotalDuplicates returns the number of duplicates skipped across accounts.
func (s *RunSummary) TotalDuplicates() int {
	n := 0
	for _, r := range s.Accounts {
		n += r.Duplicates
	}
	return n
}

// TotalFailed returns the number of failed submissions across accounts.
func (s *RunSummary) TotalFailed() int {
	n := 0
	for _, r := range s.Accounts {
		n += r.Failed
	}
	return n
}
