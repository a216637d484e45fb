package quality

import (
	"os"

	"gopkg.in/yaml.v3"

	bankmlErrors "github.com/banktools/bankml/pkg/errors"
)

// RuleKind discriminates validation rule types.
type RuleKind string

const (
	// Numeric rules constrain a column to a [Min, Max] range.
	Numeric RuleKind = "numeric"
	// Categorical rules constrain a column to an allowed value set.
	Categorical RuleKind = "categorical"
)

// Rule is the per-column validation contract. Rules are used for
// reporting only and never mutate data.
type Rule struct {
	Kind          RuleKind `yaml:"kind"`
	Min           *float64 `yaml:"min,omitempty"`
	Max           *float64 `yaml:"max,omitempty"`
	AllowedValues []string `yaml:"allowed_values,omitempty"`
}

// RuleSet maps column names to their rules.
type RuleSet map[string]Rule

// LoadRules reads a RuleSet from a YAML file of the form:
//
//	CreditScore:
//	  kind: numeric
//	  min: 300
//	  max: 850
//	Geography:
//	  kind: categorical
//	  allowed_values: [France, Germany, Spain]
func LoadRules(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, bankmlErrors.NewModelError("LoadRules", "cannot read "+path, err)
	}
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, bankmlErrors.NewModelError("LoadRules", "invalid rule file "+path, err)
	}
	return rs, nil
}

func fp(v float64) *float64 { return &v }

// ChurnRules returns the built-in validation rules for the churn dataset.
func ChurnRules() RuleSet {
	return RuleSet{
		"CreditScore":     {Kind: Numeric, Min: fp(300), Max: fp(850)},
		"Geography":       {Kind: Categorical, AllowedValues: []string{"France", "Germany", "Spain"}},
		"Gender":          {Kind: Categorical, AllowedValues: []string{"Male", "Female"}},
		"Age":             {Kind: Numeric, Min: fp(18), Max: fp(100)},
		"Tenure":          {Kind: Numeric, Min: fp(0), Max: fp(50)},
		"Balance":         {Kind: Numeric, Min: fp(0)},
		"NumOfProducts":   {Kind: Numeric, Min: fp(1), Max: fp(4)},
		"HasCrCard":       {Kind: Numeric, Min: fp(0), Max: fp(1)},
		"IsActiveMember":  {Kind: Numeric, Min: fp(0), Max: fp(1)},
		"EstimatedSalary": {Kind: Numeric, Min: fp(0)},
		"Exited":          {Kind: Numeric, Min: fp(0), Max: fp(1)},
	}
}

// LoanRules returns the built-in validation rules for the loan dataset.
func LoanRules() RuleSet {
	return RuleSet{
		"Gender":            {Kind: Categorical, AllowedValues: []string{"Male", "Female"}},
		"Married":           {Kind: Categorical, AllowedValues: []string{"Yes", "No"}},
		"Education":         {Kind: Categorical, AllowedValues: []string{"Graduate", "Not Graduate"}},
		"Self_Employed":     {Kind: Categorical, AllowedValues: []string{"Yes", "No"}},
		"Property_Area":     {Kind: Categorical, AllowedValues: []string{"Urban", "Semiurban", "Rural"}},
		"ApplicantIncome":   {Kind: Numeric, Min: fp(0)},
		"CoapplicantIncome": {Kind: Numeric, Min: fp(0)},
		"LoanAmount":        {Kind: Numeric, Min: fp(0)},
		"Loan_Amount_Term":  {Kind: Numeric, Min: fp(0), Max: fp(480)},
		"Credit_History":    {Kind: Numeric, Min: fp(0), Max: fp(1)},
	}
}
