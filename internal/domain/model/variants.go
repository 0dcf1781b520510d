package model

// Schema names of the built-in record variants.
const (
	SchemaEvaluation = "evaluation"
	SchemaCritique   = "critique"
	SchemaTestCase   = "test_case"
)

// Evaluation record fields.
const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldDecision = "decision"
	FieldScore    = "score"
	FieldFeedback = "feedback"
)

// Critique record fields.
const (
	FieldRequirementID      = "requirement_id"
	FieldRequirementSummary = "requirement_summary"
	FieldFulfillment        = "fulfillment"
	FieldCritique           = "critique"
	FieldSuggestions        = "suggestions"
)

// Test case record fields.
const (
	FieldTestCaseID  = "test_case_id"
	FieldDescription = "description"
	FieldStatus      = "status"
)

// Canonical enum values.
const (
	DecisionSelected = "Selected"
	DecisionRejected = "Rejected"

	Fulfilled          = "Fulfilled"
	PartiallyFulfilled = "Partially Fulfilled"
	NotFulfilled       = "Not Fulfilled"

	StatusPass = "Pass"
	StatusFail = "Fail"
)

// Evaluation is the typed view of a candidate screening record.
type Evaluation struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Decision string `json:"decision"`
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// EvaluationOf reads the evaluation fields of r. Unset fields stay zero.
func EvaluationOf(r Record) Evaluation {
	score, _ := r.Get(FieldScore).Int()
	return Evaluation{
		Name:     r.Get(FieldName).Text(),
		Email:    r.Get(FieldEmail).Text(),
		Decision: r.Get(FieldDecision).Text(),
		Score:    int(score),
		Feedback: r.Get(FieldFeedback).Text(),
	}
}

// Critique is the typed view of a requirement critique record.
type Critique struct {
	RequirementID      string `json:"requirement_id"`
	RequirementSummary string `json:"requirement_summary"`
	Fulfillment        string `json:"fulfillment"`
	Critique           string `json:"critique"`
	Suggestions        string `json:"suggestions,omitempty"`
}

// CritiqueOf reads the critique fields of r.
func CritiqueOf(r Record) Critique {
	return Critique{
		RequirementID:      r.Get(FieldRequirementID).Text(),
		RequirementSummary: r.Get(FieldRequirementSummary).Text(),
		Fulfillment:        r.Get(FieldFulfillment).Text(),
		Critique:           r.Get(FieldCritique).Text(),
		Suggestions:        r.Get(FieldSuggestions).Text(),
	}
}

// TestCaseResult is the typed view of a browser test execution record.
type TestCaseResult struct {
	TestCaseID  string `json:"test_case_id"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// TestCaseResultOf reads the test case fields of r.
func TestCaseResultOf(r Record) TestCaseResult {
	return TestCaseResult{
		TestCaseID:  r.Get(FieldTestCaseID).Text(),
		Description: r.Get(FieldDescription).Text(),
		Status:      r.Get(FieldStatus).Text(),
	}
}
