package entity

import (
	"encoding/json"
	"fmt"
)

// ProjectAllocationEntry is the hours an employee booked against one assigned project
type ProjectAllocationEntry struct {
	ProjectID string  `json:"projectId"`
	Hours     float64 `json:"hours"`
	Report    string  `json:"report"`
	ClientID  string  `json:"clientId,omitempty"`
}

// DetailedTimesheetEntry is a free-form line used by employees without project assignments
type DetailedTimesheetEntry struct {
	Task        string  `json:"task"`
	Description string  `json:"description,omitempty"`
	Hours       float64 `json:"hours"`
}

// Allocation is the day's time breakdown. It is either a ProjectAllocation
// or a DetailedAllocation, never both.
type Allocation interface {
	isAllocation()
	TotalHours() float64
}

// ProjectAllocation is used when the employee has project assignments
type ProjectAllocation struct {
	Projects []ProjectAllocationEntry `json:"projects"`
}

// DetailedAllocation is used when the employee has no project assignments
type DetailedAllocation struct {
	Entries []DetailedTimesheetEntry `json:"entries"`
}

func (ProjectAllocation) isAllocation()  {}
func (DetailedAllocation) isAllocation() {}

// TotalHours sums the hours of entries that name a project
func (a ProjectAllocation) TotalHours() float64 {
	var total float64
	for _, p := range a.Projects {
		if p.ProjectID != "" {
			total += p.Hours
		}
	}
	return total
}

// TotalHours sums the hours of all entries
func (a DetailedAllocation) TotalHours() float64 {
	var total float64
	for _, e := range a.Entries {
		total += e.Hours
	}
	return total
}

// NewAllocation selects the allocation shape from the employee's assignment flag
func NewAllocation(hasProjects bool, projects []ProjectAllocationEntry, entries []DetailedTimesheetEntry) Allocation {
	if hasProjects {
		return ProjectAllocation{Projects: projects}
	}
	return DetailedAllocation{Entries: entries}
}

// allocationEnvelope is the stored shape: exactly one key is populated
type allocationEnvelope struct {
	Projects *[]ProjectAllocationEntry `json:"projects,omitempty"`
	Entries  *[]DetailedTimesheetEntry `json:"entries,omitempty"`
}

// MarshalAllocation encodes an allocation as {"projects":[...]} or {"entries":[...]}.
// A nil allocation encodes as an empty string.
func MarshalAllocation(a Allocation) (string, error) {
	var env allocationEnvelope
	switch v := a.(type) {
	case nil:
		return "", nil
	case ProjectAllocation:
		projects := v.Projects
		if projects == nil {
			projects = []ProjectAllocationEntry{}
		}
		env.Projects = &projects
	case DetailedAllocation:
		entries := v.Entries
		if entries == nil {
			entries = []DetailedTimesheetEntry{}
		}
		env.Entries = &entries
	default:
		return "", fmt.Errorf("unknown allocation type %T", a)
	}

	b, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal allocation: %w", err)
	}
	return string(b), nil
}

// UnmarshalAllocation decodes a stored allocation. An empty string yields nil.
func UnmarshalAllocation(s string) (Allocation, error) {
	if s == "" {
		return nil, nil
	}

	var env allocationEnvelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return nil, fmt.Errorf("unmarshal allocation: %w", err)
	}

	switch {
	case env.Projects != nil && env.Entries != nil:
		return nil, fmt.Errorf("allocation has both projects and entries")
	case env.Projects != nil:
		return ProjectAllocation{Projects: *env.Projects}, nil
	case env.Entries != nil:
		return DetailedAllocation{Entries: *env.Entries}, nil
	default:
		return nil, nil
	}
}
