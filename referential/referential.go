// Package referential holds the reference data a manifest is checked
// against: archival agreements, agencies, management rules and the
// extended field ontology of each document type. It is loaded from a
// YAML file.
package referential

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/APTrust/transfer-services/constants"
	"github.com/APTrust/transfer-services/ingest"
	"github.com/APTrust/transfer-services/models/service"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"

	// DurationUnlimited marks a rule that never ends.
	DurationUnlimited = "unlimited"
)

// ErrReferentialNotFound is returned by Load when the file does not
// exist.
var ErrReferentialNotFound = errors.New("referential file not found")

// FinalActions lists the final actions each category accepts.
var FinalActions = map[string][]string{
	constants.RuleAppraisal: {"Keep", "Destroy"},
	constants.RuleStorage:   {"RestrictAccess", "Transfer", "Copy"},
}

type Agreement struct {
	Identifier string `yaml:"identifier"`
	Name       string `yaml:"name,omitempty"`
	Status     string `yaml:"status,omitempty"`
	LinkParent string `yaml:"link_parent,omitempty"`
}

type Agency struct {
	Identifier string `yaml:"identifier"`
	Name       string `yaml:"name,omitempty"`
}

// RuleDefinition is a management rule. Duration is a count followed
// by Y, M or D ("10Y", "6M"), or "unlimited".
type RuleDefinition struct {
	Identifier string `yaml:"identifier"`
	Type       string `yaml:"type"`
	Duration   string `yaml:"duration,omitempty"`
}

// Referential implements the agreement, agency, ontology, duration
// and management checks a manifest parse needs.
type Referential struct {
	Agreements    []*Agreement                                 `yaml:"agreements"`
	Agencies      []*Agency                                    `yaml:"agencies"`
	Rules         []*RuleDefinition                            `yaml:"rules"`
	DocumentTypes map[string]map[string]*service.OntologyField `yaml:"document_types"`

	agreements map[string]*Agreement
	agencies   map[string]*Agency
	rules      map[string]*RuleDefinition
}

// Load reads and indexes the referential at path.
func Load(path string) (*Referential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrReferentialNotFound
		}
		return nil, err
	}
	return Parse(data)
}

// Parse builds a referential from YAML data.
func Parse(data []byte) (*Referential, error) {
	ref := &Referential{}
	if err := yaml.Unmarshal(data, ref); err != nil {
		return nil, fmt.Errorf("Cannot parse referential: %s", err.Error())
	}
	if err := ref.index(); err != nil {
		return nil, err
	}
	return ref, nil
}

func (r *Referential) index() error {
	r.agreements = lo.KeyBy(r.Agreements, func(a *Agreement) string { return a.Identifier })
	r.agencies = lo.KeyBy(r.Agencies, func(a *Agency) string { return a.Identifier })
	r.rules = lo.KeyBy(r.Rules, func(rule *RuleDefinition) string { return rule.Identifier })
	for _, rule := range r.Rules {
		if !lo.Contains(constants.RuleCategories, rule.Type) {
			return fmt.Errorf("Rule %s has unknown type '%s'", rule.Identifier, rule.Type)
		}
		if _, _, err := parseDuration(rule.Duration); err != nil {
			return fmt.Errorf("Rule %s: %s", rule.Identifier, err.Error())
		}
	}
	for documentType, fields := range r.DocumentTypes {
		for path, field := range fields {
			if field == nil {
				return fmt.Errorf("Field %s of document type %s has no definition", path, documentType)
			}
			if field.Identifier == "" {
				field.Identifier = path
			}
			if field.Type == "" {
				field.Type = service.FieldTypeText
			}
		}
	}
	return nil
}

// CheckArchivalAgreement accepts a known, active agreement.
func (r *Referential) CheckArchivalAgreement(identifier string) error {
	agreement := r.agreements[identifier]
	if agreement == nil {
		return fmt.Errorf("Archival agreement '%s' is unknown", identifier)
	}
	if agreement.Status != "" && agreement.Status != StatusActive {
		return fmt.Errorf("Archival agreement '%s' is %s", identifier, strings.ToLower(agreement.Status))
	}
	return nil
}

func (r *Referential) CheckAgency(identifier string) error {
	if r.agencies[identifier] == nil {
		return fmt.Errorf("Agency '%s' is unknown", identifier)
	}
	return nil
}

// LinkParent returns the system id new root units are attached to
// under the given agreement. An empty agreement has no link parent.
func (r *Referential) LinkParent(archivalAgreement string) (string, error) {
	if archivalAgreement == "" {
		return "", nil
	}
	agreement := r.agreements[archivalAgreement]
	if agreement == nil {
		return "", fmt.Errorf("Archival agreement '%s' is unknown", archivalAgreement)
	}
	return agreement.LinkParent, nil
}

// Fields returns the ontology of a document type. Unknown document
// types have no extended fields.
func (r *Referential) Fields(documentType string) (map[string]*service.OntologyField, error) {
	fields := r.DocumentTypes[documentType]
	if fields == nil {
		return map[string]*service.OntologyField{}, nil
	}
	return fields, nil
}

// EndDate adds the rule's duration to startDate.
func (r *Referential) EndDate(ruleID, startDate string) (string, error) {
	rule := r.rules[ruleID]
	if rule == nil {
		return "", fmt.Errorf("Rule '%s' is unknown", ruleID)
	}
	amount, unit, err := parseDuration(rule.Duration)
	if err != nil || unit == "" {
		return "", err
	}
	if len(startDate) > 10 {
		startDate = startDate[:10]
	}
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return "", fmt.Errorf("Start date '%s' of rule %s is not a date", startDate, ruleID)
	}
	var end time.Time
	switch unit {
	case "Y":
		end = start.AddDate(amount, 0, 0)
	case "M":
		end = start.AddDate(0, amount, 0)
	default:
		end = start.AddDate(0, 0, amount)
	}
	return end.Format("2006-01-02"), nil
}

// Validate checks that every rule of a management block is known and
// belongs to the category it is declared in, and that final actions
// are legal for their category.
func (r *Referential) Validate(management *service.Management) error {
	for _, name := range constants.RuleCategories {
		category := management.Categories[name]
		if category == nil {
			continue
		}
		for _, rule := range category.Rules {
			definition := r.rules[rule.Name]
			if definition == nil {
				return fmt.Errorf("Rule '%s' in %s is unknown", rule.Name, name)
			}
			if definition.Type != name {
				return fmt.Errorf("Rule '%s' is a %s and cannot be used in %s", rule.Name, definition.Type, name)
			}
		}
		for _, id := range category.RefNonRuleIDs {
			if r.rules[id] == nil {
				return fmt.Errorf("RefNonRuleId '%s' in %s is unknown", id, name)
			}
		}
		if category.FinalAction != "" && !lo.Contains(FinalActions[name], category.FinalAction) {
			return fmt.Errorf("FinalAction '%s' is not allowed in %s", category.FinalAction, name)
		}
	}
	return nil
}

// parseDuration splits "10Y" into 10 and "Y". Unlimited and empty
// durations return an empty unit.
func parseDuration(duration string) (int, string, error) {
	if duration == "" || strings.EqualFold(duration, DurationUnlimited) {
		return 0, "", nil
	}
	unit := strings.ToUpper(duration[len(duration)-1:])
	if unit != "Y" && unit != "M" && unit != "D" {
		return 0, "", fmt.Errorf("duration '%s' must end in Y, M or D", duration)
	}
	amount, err := strconv.Atoi(duration[:len(duration)-1])
	if err != nil || amount < 0 {
		return 0, "", fmt.Errorf("duration '%s' is not a valid count", duration)
	}
	return amount, unit, nil
}

// Wire installs the referential into collab as its referential
// checker, ontology, management validator and rule durations.
func (r *Referential) Wire(collab *ingest.Collaborators) {
	collab.Referential = r
	collab.Ontology = r
	collab.Management = r
	collab.Rules = &ingest.RuleInheritance{Durations: r}
}
