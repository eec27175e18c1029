package catalog

import (
	"fmt"
	"sort"
	"time"

	"github.com/spec-kit/service-desk/internal/domain"
)

// Data is the raw configuration read from the configuration store.
type Data struct {
	Departments  []domain.Department
	RequestTypes []domain.RequestType
	Policies     []domain.SLAPolicy
	Overrides    []domain.SLAOverride
	KeywordRules []domain.KeywordRule
}

// Rule is a keyword rule with its keyword already normalized.
type Rule struct {
	domain.KeywordRule
	Normalized string
}

type overrideKey struct {
	departmentID  int64
	requestTypeID int64
	priority      domain.TicketPriority
}

// Snapshot is an immutable, versioned view of the configuration store.
type Snapshot struct {
	version  int64
	loadedAt time.Time

	departments  map[int64]domain.Department
	requestTypes map[int64]domain.RequestType
	menu         []domain.RequestType
	policies     map[domain.TicketPriority]domain.SLAPolicy
	overrides    map[overrideKey]domain.SLAOverride
	overrideDept map[int64][]int64
	rules        []Rule
	totalWeight  map[int64]int
}

// NewSnapshot validates data and indexes it.
func NewSnapshot(version int64, loadedAt time.Time, data Data) (*Snapshot, error) {
	s := &Snapshot{
		version:      version,
		loadedAt:     loadedAt,
		departments:  make(map[int64]domain.Department, len(data.Departments)),
		requestTypes: make(map[int64]domain.RequestType, len(data.RequestTypes)),
		policies:     make(map[domain.TicketPriority]domain.SLAPolicy, len(data.Policies)),
		overrides:    make(map[overrideKey]domain.SLAOverride, len(data.Overrides)),
		overrideDept: make(map[int64][]int64),
		totalWeight:  make(map[int64]int),
	}

	for _, d := range data.Departments {
		s.departments[d.ID] = d
	}
	for _, rt := range data.RequestTypes {
		s.requestTypes[rt.ID] = rt
		s.menu = append(s.menu, rt)
	}
	sort.Slice(s.menu, func(i, j int) bool {
		if s.menu[i].MenuPosition != s.menu[j].MenuPosition {
			return s.menu[i].MenuPosition < s.menu[j].MenuPosition
		}
		return s.menu[i].ID < s.menu[j].ID
	})

	for _, p := range data.Policies {
		priority, ok := domain.ParsePriority(string(p.Priority))
		if !ok {
			return nil, fmt.Errorf("%w: policy has unknown priority %q", domain.ErrValidation, p.Priority)
		}
		p.Priority = priority
		if p.ResponseMinutes <= 0 || p.ResolutionMinutes <= 0 {
			return nil, fmt.Errorf("%w: policy %s must have positive durations", domain.ErrValidation, p.Priority)
		}
		if _, dup := s.policies[p.Priority]; dup {
			return nil, fmt.Errorf("%w: duplicate policy for %s", domain.ErrValidation, p.Priority)
		}
		s.policies[p.Priority] = p
	}

	for _, o := range data.Overrides {
		priority, ok := domain.ParsePriority(string(o.Priority))
		if !ok {
			return nil, fmt.Errorf("%w: override has unknown priority %q", domain.ErrValidation, o.Priority)
		}
		o.Priority = priority
		if o.ResponseMinutes <= 0 || o.ResolutionMinutes <= 0 {
			return nil, fmt.Errorf("%w: override (%d,%d,%s) must have positive durations",
				domain.ErrValidation, o.DepartmentID, o.RequestTypeID, o.Priority)
		}
		key := overrideKey{departmentID: o.DepartmentID, requestTypeID: o.RequestTypeID, priority: o.Priority}
		if _, dup := s.overrides[key]; dup {
			return nil, fmt.Errorf("%w: duplicate override (%d,%d,%s)",
				domain.ErrValidation, o.DepartmentID, o.RequestTypeID, o.Priority)
		}
		s.overrides[key] = o
		s.addOverrideDepartment(o.RequestTypeID, o.DepartmentID)
	}

	seen := make(map[string]int64, len(data.KeywordRules))
	for _, r := range data.KeywordRules {
		if r.Weight < 1 {
			return nil, fmt.Errorf("%w: keyword %q must have weight >= 1", domain.ErrValidation, r.Keyword)
		}
		if _, ok := s.requestTypes[r.RequestTypeID]; !ok {
			return nil, fmt.Errorf("%w: keyword %q references unknown request type %d",
				domain.ErrValidation, r.Keyword, r.RequestTypeID)
		}
		normalized := NormalizeText(r.Keyword)
		if normalized == "" {
			return nil, fmt.Errorf("%w: keyword %q is empty after normalization", domain.ErrValidation, r.Keyword)
		}
		if other, dup := seen[normalized]; dup {
			return nil, fmt.Errorf("%w: keyword %q duplicates rule %d", domain.ErrValidation, r.Keyword, other)
		}
		seen[normalized] = r.ID
		s.rules = append(s.rules, Rule{KeywordRule: r, Normalized: normalized})
		s.totalWeight[r.RequestTypeID] += r.Weight
	}
	sort.Slice(s.rules, func(i, j int) bool { return s.rules[i].ID < s.rules[j].ID })

	return s, nil
}

// Empty returns a snapshot with no configuration, version 0.
func Empty() *Snapshot {
	s, _ := NewSnapshot(0, time.Time{}, Data{})
	return s
}

func (s *Snapshot) addOverrideDepartment(requestTypeID, departmentID int64) {
	depts := s.overrideDept[requestTypeID]
	idx := sort.Search(len(depts), func(i int) bool { return depts[i] >= departmentID })
	if idx < len(depts) && depts[idx] == departmentID {
		return
	}
	depts = append(depts, 0)
	copy(depts[idx+1:], depts[idx:])
	depts[idx] = departmentID
	s.overrideDept[requestTypeID] = depts
}

func (s *Snapshot) Version() int64 { return s.version }

func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

func (s *Snapshot) Department(id int64) (domain.Department, bool) {
	d, ok := s.departments[id]
	return d, ok
}

func (s *Snapshot) RequestType(id int64) (domain.RequestType, bool) {
	rt, ok := s.requestTypes[id]
	return rt, ok
}

// Menu returns request types in menu order.
func (s *Snapshot) Menu() []domain.RequestType {
	out := make([]domain.RequestType, len(s.menu))
	copy(out, s.menu)
	return out
}

// Policy returns the configured default policy for a priority.
func (s *Snapshot) Policy(priority domain.TicketPriority) (domain.SLAPolicy, bool) {
	p, ok := s.policies[priority]
	return p, ok
}

// Override returns the exact (department, request type, priority) override.
func (s *Snapshot) Override(departmentID, requestTypeID int64, priority domain.TicketPriority) (domain.SLAOverride, bool) {
	o, ok := s.overrides[overrideKey{departmentID: departmentID, requestTypeID: requestTypeID, priority: priority}]
	return o, ok
}

// OverrideDepartments lists, ascending, the departments with an override naming requestTypeID.
func (s *Snapshot) OverrideDepartments(requestTypeID int64) []int64 {
	depts := s.overrideDept[requestTypeID]
	out := make([]int64, len(depts))
	copy(out, depts)
	return out
}

// Rules returns keyword rules ordered by id.
func (s *Snapshot) Rules() []Rule {
	return s.rules
}

// TotalWeight is the sum of rule weights for a request type.
func (s *Snapshot) TotalWeight(requestTypeID int64) int {
	return s.totalWeight[requestTypeID]
}

// Counts summarizes the snapshot for logging.
func (s *Snapshot) Counts() map[string]int {
	return map[string]int{
		"departments":   len(s.departments),
		"request_types": len(s.requestTypes),
		"policies":      len(s.policies),
		"overrides":     len(s.overrides),
		"keyword_rules": len(s.rules),
	}
}
