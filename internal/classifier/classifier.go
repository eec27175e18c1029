// Package classifier maps free-text guest messages to request types by keyword scoring.
package classifier

import (
	"sort"
	"strings"

	"github.com/spec-kit/service-desk/internal/catalog"
	"github.com/spec-kit/service-desk/internal/domain"
)

type score struct {
	requestTypeID int64
	total         int
	keywords      []string
}

// Classify scores text against the snapshot's keyword rules. It is pure.
func Classify(snapshot *catalog.Snapshot, text string) domain.ClassificationResult {
	result := domain.ClassificationResult{MatchedKeywords: []string{}}
	if snapshot == nil {
		return result
	}
	result.SnapshotVersion = snapshot.Version()

	normalized := catalog.NormalizeText(text)
	if normalized == "" {
		return result
	}
	padded := " " + normalized + " "

	scores := map[int64]*score{}
	for _, rule := range snapshot.Rules() {
		if !strings.Contains(padded, " "+rule.Normalized+" ") {
			continue
		}
		sc, ok := scores[rule.RequestTypeID]
		if !ok {
			sc = &score{requestTypeID: rule.RequestTypeID}
			scores[rule.RequestTypeID] = sc
		}
		sc.total += rule.Weight
		sc.keywords = append(sc.keywords, rule.Normalized)
	}
	if len(scores) == 0 {
		return result
	}

	ranked := make([]*score, 0, len(scores))
	for _, sc := range scores {
		ranked = append(ranked, sc)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.total != b.total {
			return a.total > b.total
		}
		if len(a.keywords) != len(b.keywords) {
			return len(a.keywords) > len(b.keywords)
		}
		return a.requestTypeID < b.requestTypeID
	})
	winner := ranked[0]

	requestTypeID := winner.requestTypeID
	result.RequestTypeID = &requestTypeID
	result.MatchedKeywords = winner.keywords
	if possible := snapshot.TotalWeight(requestTypeID); possible > 0 {
		result.Confidence = float64(winner.total) / float64(possible)
	}
	result.SuggestedDepartmentID = InferDepartment(snapshot, requestTypeID)
	return result
}

// InferDepartment picks the owning department for a request type: the lowest
// department with an SLA override for it, then the type's default department.
func InferDepartment(snapshot *catalog.Snapshot, requestTypeID int64) *int64 {
	if depts := snapshot.OverrideDepartments(requestTypeID); len(depts) > 0 {
		d := depts[0]
		return &d
	}
	if rt, ok := snapshot.RequestType(requestTypeID); ok && rt.DefaultDepartmentID != nil {
		d := *rt.DefaultDepartmentID
		return &d
	}
	return nil
}

// Router decides whether a classification is good enough to become a ticket.
type Router struct {
	MinConfidence float64
}

// Confident reports whether result can be turned into a ticket without triage.
func (r Router) Confident(result domain.ClassificationResult) bool {
	if !result.Matched() || result.Confidence <= 0 {
		return false
	}
	return result.Confidence >= r.MinConfidence
}

// Routable reports whether result is confident and names a department.
func (r Router) Routable(result domain.ClassificationResult) bool {
	return r.Confident(result) && result.SuggestedDepartmentID != nil
}
