package portal

import "github.com/bobbridge/portal/lifecycle"

// ChecklistTemplate is one default checklist entry seeded when a project
// first reaches a stage.
type ChecklistTemplate struct {
	Title    string
	Required bool
}

// defaultChecklists holds the delivery checklist seeded per stage. Required
// items gate advancing out of the stage; optional ones are guidance only.
var defaultChecklists = map[lifecycle.Stage][]ChecklistTemplate{
	lifecycle.StagePreSales: {
		{Title: "Statement of work signed", Required: true},
		{Title: "Key stakeholders identified", Required: false},
	},
	lifecycle.StageDiscovery: {
		{Title: "Current payroll process documented", Required: true},
		{Title: "Pay elements inventory collected", Required: true},
		{Title: "Integration scope agreed", Required: true},
		{Title: "Kick-off call held", Required: false},
	},
	lifecycle.StageProvisioning: {
		{Title: "Bob service user created", Required: true},
		{Title: "API credentials exchanged", Required: true},
		{Title: "Sandbox environment available", Required: false},
	},
	lifecycle.StageBobConfig: {
		{Title: "Payroll fields configured in Bob", Required: true},
		{Title: "Work patterns and calendars set up", Required: true},
		{Title: "Leave policies reviewed", Required: false},
	},
	lifecycle.StageMapping: {
		{Title: "Employee field mapping approved", Required: true},
		{Title: "Pay element mapping approved", Required: true},
		{Title: "Cost centre mapping approved", Required: false},
	},
	lifecycle.StageBuild: {
		{Title: "Integration build complete", Required: true},
		{Title: "Sample file validated by payroll team", Required: true},
	},
	lifecycle.StageUAT: {
		{Title: "Parallel run 1 reconciled", Required: true},
		{Title: "Parallel run 2 reconciled", Required: true},
		{Title: "UAT sign-off received", Required: true},
	},
	lifecycle.StageGoLive: {
		{Title: "First live payroll submitted", Required: true},
		{Title: "Hypercare period agreed", Required: false},
	},
	lifecycle.StageSupport: {
		{Title: "Handover to support completed", Required: false},
	},
}

// ChecklistFor returns the default checklist for a stage, which may be empty
func ChecklistFor(stage lifecycle.Stage) []ChecklistTemplate {
	return defaultChecklists[stage]
}
