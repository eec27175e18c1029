package domain

// KeywordRule scores a request type when its keyword appears in a message.
type KeywordRule struct {
	ID            int64
	Keyword       string
	RequestTypeID int64
	Weight        int
}

// ClassificationResult is the transient outcome of keyword classification.
type ClassificationResult struct {
	RequestTypeID         *int64
	MatchedKeywords       []string
	Confidence            float64
	SuggestedDepartmentID *int64
	SnapshotVersion       int64
}

// Matched reports whether any keyword matched.
func (r ClassificationResult) Matched() bool {
	return r.RequestTypeID != nil
}
