package service

import (
	"github.com/APTrust/transfer-services/constants"
)

// Management holds the rules a unit (or the whole transfer) declares.
type Management struct {
	Categories        map[string]*RuleCategory `json:"categories"`
	NeedAuthorization bool                     `json:"need_authorization,omitempty"`
	UpdateOperation   *UpdateOperation         `json:"-"`
}

// RuleCategory is the ordered rule list of one category along with
// the flags that apply to the category as a whole.
type RuleCategory struct {
	Name               string                `json:"name"`
	Rules              []*Rule               `json:"rules"`
	FinalAction        string                `json:"final_action,omitempty"`
	PreventInheritance bool                  `json:"prevent_inheritance,omitempty"`
	RefNonRuleIDs      []string              `json:"ref_non_rule_ids,omitempty"`
	Classification     *ClassificationExtras `json:"classification,omitempty"`
}

type Rule struct {
	Name      string      `json:"rule"`
	StartDate string      `json:"start_date,omitempty"`
	Hold      *HoldExtras `json:"hold,omitempty"`
}

type ClassificationExtras struct {
	Level                        string `json:"level,omitempty"`
	Owner                        string `json:"owner,omitempty"`
	Audience                     string `json:"audience,omitempty"`
	ReassessingDate              string `json:"reassessing_date,omitempty"`
	NeedReassessingAuthorization *bool  `json:"need_reassessing_authorization,omitempty"`
}

type HoldExtras struct {
	Owner                string `json:"owner,omitempty"`
	Reason               string `json:"reason,omitempty"`
	EndDate              string `json:"end_date,omitempty"`
	ReassessingDate      string `json:"reassessing_date,omitempty"`
	PreventRearrangement *bool  `json:"prevent_rearrangement,omitempty"`
}

// UpdateOperation names an already persisted unit that this manifest
// unit stands for, either by system id or by a metadata key.
type UpdateOperation struct {
	SystemID      string
	MetadataName  string
	MetadataValue string
}

func NewManagement() *Management {
	return &Management{
		Categories: make(map[string]*RuleCategory),
	}
}

// Category returns the named category, creating it if necessary.
func (m *Management) Category(name string) *RuleCategory {
	category := m.Categories[name]
	if category == nil {
		category = &RuleCategory{
			Name:  name,
			Rules: make([]*Rule, 0),
		}
		m.Categories[name] = category
	}
	return category
}

// HasRules returns true if any category declares at least one rule.
func (m *Management) HasRules() bool {
	for _, category := range m.Categories {
		if len(category.Rules) > 0 {
			return true
		}
	}
	return false
}

// AddRule appends a new rule and returns it.
func (c *RuleCategory) AddRule(name string) *Rule {
	rule := &Rule{Name: name}
	c.Rules = append(c.Rules, rule)
	return rule
}

// LastRule returns the most recently declared rule, or nil.
func (c *RuleCategory) LastRule() *Rule {
	if len(c.Rules) == 0 {
		return nil
	}
	return c.Rules[len(c.Rules)-1]
}

// ComputedRule is one rule in effect on a unit, either its own or
// inherited from an ancestor.
type ComputedRule struct {
	Name      string `json:"rule"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Inherited bool   `json:"inherited"`
	OriginID  int64  `json:"origin_id"`
}

type InheritedCategory struct {
	Rules       []*ComputedRule `json:"rules"`
	MaxEndDate  string          `json:"max_end_date,omitempty"`
	FinalAction string          `json:"final_action,omitempty"`
}

// InheritedRules is the per-unit result of combining a unit's rules with
// those of its ancestors.
type InheritedRules struct {
	Categories map[string]*InheritedCategory `json:"categories"`
	Computed   bool                          `json:"computed"`
}

// NewInheritedRules returns an empty entry for every rule category.
func NewInheritedRules() *InheritedRules {
	rules := &InheritedRules{
		Categories: make(map[string]*InheritedCategory, len(constants.RuleCategories)),
	}
	for _, name := range constants.RuleCategories {
		rules.Categories[name] = &InheritedCategory{
			Rules: make([]*ComputedRule, 0),
		}
	}
	return rules
}
