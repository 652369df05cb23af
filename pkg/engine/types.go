package engine

import "matchcore/pkg/match"

type (
	Applicant       = match.Applicant
	Program         = match.Program
	PreferenceIndex = match.PreferenceIndex
	Scenario        = match.Scenario
	Result          = match.Result
	DropReport      = match.DropReport
	Metrics         = match.Metrics
	Move            = match.Move
	Diff            = match.Diff
)
