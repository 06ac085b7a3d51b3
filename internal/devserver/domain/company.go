package domain

import (
	"time"

	"github.com/aussiebroadwan/bizops/pkg/featuregate"
)

type Company struct {
	ID                 string
	Name               string
	Plan               featuregate.Plan
	Industry           string
	EmployeeCount      string
	Address            string
	City               string
	State              string
	Country            string
	PostalCode         string
	Phone              string
	Email              string
	Website            string
	Logo               string
	SubscriptionStatus string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
