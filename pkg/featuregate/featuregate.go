// Package featuregate answers whether a subscription plan unlocks a feature.
//
// The mapping is fixed data and purely advisory: the backend remains the
// authority on what a tenant may actually do.
package featuregate

import (
	"slices"
	"strings"
)

// Plan is a subscription tier as reported on the company record.
type Plan string

const (
	Basic        Plan = "Basic"
	Professional Plan = "Professional"
	Pro          Plan = "Pro"
)

// Feature is a module or capability key.
type Feature string

const (
	HR                 Feature = "hr"
	Payroll            Feature = "payroll"
	Invoice            Feature = "invoice"
	Timesheet          Feature = "timesheet"
	Tools              Feature = "tools"
	Procurement        Feature = "procurement"
	BasicReporting     Feature = "basic_reporting"
	AdvancedAnalytics  Feature = "advanced_analytics"
	CustomIntegrations Feature = "custom_integrations"
	AdvancedSecurity   Feature = "advanced_security"
)

var professionalFeatures = []Feature{
	HR, Payroll, Invoice, Timesheet, Tools, Procurement, AdvancedAnalytics,
}

var planFeatures = map[Plan][]Feature{
	Basic:        {HR, Invoice, BasicReporting},
	Professional: professionalFeatures,
	Pro:          append(slices.Clone(professionalFeatures), CustomIntegrations, AdvancedSecurity),
}

// Valid reports whether p is one of the known tiers.
func (p Plan) Valid() bool {
	_, ok := planFeatures[p]
	return ok
}

func (p Plan) String() string { return string(p) }

// HasAccess reports whether plan unlocks feature. Unknown plans and unknown
// features are never granted.
func HasAccess(plan Plan, feature Feature) bool {
	return slices.Contains(planFeatures[plan], feature)
}

// HasAccessPtr is HasAccess for callers that may not have a company yet.
func HasAccessPtr(plan *Plan, feature Feature) bool {
	if plan == nil {
		return false
	}
	return HasAccess(*plan, feature)
}

// Features returns a copy of the features unlocked by plan.
func Features(plan Plan) []Feature {
	return slices.Clone(planFeatures[plan])
}

// Plans lists the known tiers from cheapest to most expensive.
func Plans() []Plan {
	return []Plan{Basic, Professional, Pro}
}

// ParsePlan matches s against the known tiers ignoring case.
func ParsePlan(s string) (Plan, bool) {
	for _, p := range Plans() {
		if strings.EqualFold(string(p), strings.TrimSpace(s)) {
			return p, true
		}
	}
	return "", false
}
