package ingest

import (
	"encoding/xml"
	"strconv"

	"github.com/APTrust/transfer-services/constants"
	"github.com/APTrust/transfer-services/models/service"
	"github.com/samber/lo"
)

// extraHandler applies one category-specific element to a category.
type extraHandler func(category *service.RuleCategory, value string) error

// ruleExtras lists the elements each category accepts besides Rule,
// StartDate, PreventInheritance and RefNonRuleId.
var ruleExtras = map[string]map[string]extraHandler{
	constants.RuleAppraisal: {
		"FinalAction": setFinalAction,
	},
	constants.RuleStorage: {
		"FinalAction": setFinalAction,
	},
	constants.RuleClassification: {
		"ClassificationLevel": func(c *service.RuleCategory, v string) error {
			classification(c).Level = v
			return nil
		},
		"ClassificationOwner": func(c *service.RuleCategory, v string) error {
			classification(c).Owner = v
			return nil
		},
		"ClassificationAudience": func(c *service.RuleCategory, v string) error {
			classification(c).Audience = v
			return nil
		},
		"ClassificationReassessingDate": func(c *service.RuleCategory, v string) error {
			classification(c).ReassessingDate = v
			return nil
		},
		"NeedReassessingAuthorization": func(c *service.RuleCategory, v string) error {
			b, err := parseFlag(v)
			if err != nil {
				return err
			}
			classification(c).NeedReassessingAuthorization = &b
			return nil
		},
	},
	constants.RuleHold: {
		"HoldOwner": func(c *service.RuleCategory, v string) error {
			return withHold(c, "HoldOwner", func(h *service.HoldExtras) error { h.Owner = v; return nil })
		},
		"HoldReason": func(c *service.RuleCategory, v string) error {
			return withHold(c, "HoldReason", func(h *service.HoldExtras) error { h.Reason = v; return nil })
		},
		"HoldEndDate": func(c *service.RuleCategory, v string) error {
			return withHold(c, "HoldEndDate", func(h *service.HoldExtras) error { h.EndDate = v; return nil })
		},
		"HoldReassessingDate": func(c *service.RuleCategory, v string) error {
			return withHold(c, "HoldReassessingDate", func(h *service.HoldExtras) error { h.ReassessingDate = v; return nil })
		},
		"PreventRearrangement": func(c *service.RuleCategory, v string) error {
			return withHold(c, "PreventRearrangement", func(h *service.HoldExtras) error {
				b, err := parseFlag(v)
				if err != nil {
					return err
				}
				h.PreventRearrangement = &b
				return nil
			})
		},
	},
}

func setFinalAction(c *service.RuleCategory, v string) error {
	c.FinalAction = v
	return nil
}

func classification(c *service.RuleCategory) *service.ClassificationExtras {
	if c.Classification == nil {
		c.Classification = &service.ClassificationExtras{}
	}
	return c.Classification
}

// withHold applies fn to the extras of the last declared hold rule.
func withHold(c *service.RuleCategory, tag string, fn func(*service.HoldExtras) error) error {
	rule := c.LastRule()
	if rule == nil {
		return &ruleOrderError{category: c.Name, tag: tag}
	}
	if rule.Hold == nil {
		rule.Hold = &service.HoldExtras{}
	}
	return fn(rule.Hold)
}

type ruleOrderError struct {
	category string
	tag      string
}

func (e *ruleOrderError) Error() string {
	if e.tag == "StartDate" {
		return "Rule name must be declared before start date in " + e.category
	}
	return "Rule name must be declared before " + e.tag + " in " + e.category
}

func parseFlag(value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, &flagError{value: value}
	}
	return b, nil
}

type flagError struct {
	value string
}

func (e *flagError) Error() string {
	return "'" + e.value + "' is not a boolean"
}

// parseManagement reads a Management block belonging to owner (a unit
// xml id, or "ManagementMetadata" for the transfer-wide block). The
// assembled block is checked before it is returned.
func (st *parseState) parseManagement(start xml.StartElement, owner string) (*service.Management, error) {
	management := service.NewManagement()
	err := st.eachChild(func(child xml.StartElement) error {
		name := child.Name.Local
		switch {
		case lo.Contains(constants.RuleCategories, name):
			return st.parseRuleCategory(child, management.Category(name), owner)
		case name == "NeedAuthorization":
			text, err := st.readText(child)
			if err != nil {
				return err
			}
			if management.NeedAuthorization, err = parseFlag(text); err != nil {
				return service.WrapValidationError("parse management", owner, err)
			}
			return nil
		case name == "UpdateOperation":
			update, err := st.parseUpdateOperation(child, owner)
			if err != nil {
				return err
			}
			management.UpdateOperation = update
			return nil
		default:
			return st.skip()
		}
	})
	if err != nil {
		return nil, err
	}
	if st.isHolding() && management.HasRules() {
		return nil, service.NewValidationError("check management", owner,
			"Rules are not allowed in a holding plan (found in '%s')", owner)
	}
	if err := st.collab.Management.Validate(management); err != nil {
		return nil, service.WrapValidationError("check management", owner, err)
	}
	return management, nil
}

func (st *parseState) parseRuleCategory(start xml.StartElement, category *service.RuleCategory, owner string) error {
	extras := ruleExtras[category.Name]
	return st.eachChild(func(child xml.StartElement) error {
		name := child.Name.Local
		text, err := st.readText(child)
		if err != nil {
			return err
		}
		switch name {
		case "Rule":
			category.AddRule(text)
		case "StartDate":
			rule := category.LastRule()
			if rule == nil {
				return service.WrapValidationError("parse "+category.Name, owner,
					&ruleOrderError{category: category.Name, tag: name})
			}
			rule.StartDate = text
		case "PreventInheritance":
			if category.PreventInheritance, err = parseFlag(text); err != nil {
				return service.WrapValidationError("parse "+category.Name, owner, err)
			}
		case "RefNonRuleId":
			category.RefNonRuleIDs = append(category.RefNonRuleIDs, text)
		default:
			handler, ok := extras[name]
			if !ok {
				return service.NewValidationError("parse "+category.Name, owner,
					"%s is not allowed in %s of '%s'", name, category.Name, owner)
			}
			if err := handler(category, text); err != nil {
				return service.WrapValidationError("parse "+category.Name, owner, err)
			}
		}
		return nil
	})
}

func (st *parseState) parseUpdateOperation(start xml.StartElement, owner string) (*service.UpdateOperation, error) {
	update := &service.UpdateOperation{}
	err := st.eachChild(func(child xml.StartElement) error {
		var err error
		switch child.Name.Local {
		case "SystemId":
			update.SystemID, err = st.readText(child)
		case "ArchiveUnitIdentifierKey":
			err = st.eachChild(func(key xml.StartElement) error {
				var err error
				switch key.Name.Local {
				case "MetadataName":
					update.MetadataName, err = st.readText(key)
				case "MetadataValue":
					update.MetadataValue, err = st.readText(key)
				default:
					err = st.skip()
				}
				return err
			})
		default:
			err = st.skip()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if update.SystemID == "" && (update.MetadataName == "" || update.MetadataValue == "") {
		return nil, service.NewValidationError("parse update operation", owner,
			"UpdateOperation of '%s' names neither a SystemId nor a complete ArchiveUnitIdentifierKey", owner)
	}
	return update, nil
}
