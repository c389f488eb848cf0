package ingest

import (
	"github.com/APTrust/transfer-services/constants"
	"github.com/APTrust/transfer-services/models/service"
	"github.com/samber/lo"
)

// DurationLookup computes the end date of a rule that starts on
// startDate. It returns "" when the rule has no duration.
type DurationLookup interface {
	EndDate(ruleID, startDate string) (string, error)
}

// RuleInheritance is the default RuleComputer. A unit keeps the rules
// of its parent for each category, except where the category prevents
// inheritance, lists the rule as RefNonRuleId, or redeclares a rule of
// the same name. End dates come from Durations when it is set.
type RuleInheritance struct {
	Durations DurationLookup
}

func (r *RuleInheritance) Compute(unit *service.ArchiveUnit, parent *service.InheritedRules) (*service.InheritedRules, error) {
	result := service.NewInheritedRules()
	result.Computed = true
	for _, name := range constants.RuleCategories {
		var own *service.RuleCategory
		if unit.Management != nil {
			own = unit.Management.Categories[name]
		}
		computed := result.Categories[name]
		if own != nil {
			for _, rule := range own.Rules {
				endDate, err := r.endDate(rule)
				if err != nil {
					return nil, err
				}
				computed.Rules = append(computed.Rules, &service.ComputedRule{
					Name:      rule.Name,
					StartDate: rule.StartDate,
					EndDate:   endDate,
					OriginID:  unit.ID,
				})
			}
			computed.FinalAction = own.FinalAction
		}
		if parent != nil && (own == nil || !own.PreventInheritance) {
			if inherited := parent.Categories[name]; inherited != nil {
				for _, rule := range inherited.Rules {
					if own != nil && (declares(own, rule.Name) || lo.Contains(own.RefNonRuleIDs, rule.Name)) {
						continue
					}
					copied := *rule
					copied.Inherited = true
					computed.Rules = append(computed.Rules, &copied)
				}
				if computed.FinalAction == "" {
					computed.FinalAction = inherited.FinalAction
				}
			}
		}
		for _, rule := range computed.Rules {
			// Dates are ISO 8601, so they order as strings.
			if rule.EndDate > computed.MaxEndDate {
				computed.MaxEndDate = rule.EndDate
			}
		}
	}
	return result, nil
}

func (r *RuleInheritance) endDate(rule *service.Rule) (string, error) {
	if rule.Hold != nil && rule.Hold.EndDate != "" {
		return rule.Hold.EndDate, nil
	}
	if r.Durations == nil || rule.StartDate == "" {
		return "", nil
	}
	return r.Durations.EndDate(rule.Name, rule.StartDate)
}

func declares(category *service.RuleCategory, ruleName string) bool {
	return lo.ContainsBy(category.Rules, func(rule *service.Rule) bool {
		return rule.Name == ruleName
	})
}
