package schema

import "github.com/okian/reviewdesk/internal/domain/model"

func bound(n int64) *int64 { return &n }

// Evaluation is the candidate screening schema.
func Evaluation() *Schema {
	return &Schema{
		Name:     model.SchemaEvaluation,
		Title:    "Candidate Evaluation",
		Envelope: "candidates",
		Header:   model.FieldName,
		LongText: model.FieldFeedback,
		Rank:     model.FieldScore,
		Fields: []Field{
			{Name: model.FieldName, Label: "Name", Type: TypeString, Required: true, Key: true},
			{Name: model.FieldEmail, Label: "Email", Type: TypeEmail},
			{
				Name: model.FieldDecision, Label: "Decision", Type: TypeEnum, Required: true, Key: true,
				Enum:    []string{model.DecisionSelected, model.DecisionRejected},
				Aliases: []string{"selection_decision"},
			},
			{
				Name: model.FieldScore, Label: "Score", Type: TypeInt, Required: true, Key: true,
				Min: bound(0), Max: bound(100),
				Aliases: []string{"resume_score"},
			},
			{Name: model.FieldFeedback, Label: "Feedback", Type: TypeText, Required: true},
		},
	}
}

// Critique is the functional requirement critique schema.
func Critique() *Schema {
	return &Schema{
		Name:     model.SchemaCritique,
		Title:    "Functional Requirement Evaluation",
		Envelope: "results",
		Header:   model.FieldRequirementID,
		LongText: model.FieldCritique,
		Fields: []Field{
			{Name: model.FieldRequirementID, Label: "FR ID", Type: TypeString, Required: true, Key: true, Aliases: []string{"FR_id"}},
			{Name: model.FieldRequirementSummary, Label: "Requirement", Type: TypeText, Required: true},
			{
				Name: model.FieldFulfillment, Label: "Fulfillment", Type: TypeEnum, Required: true, Key: true,
				Enum: []string{model.Fulfilled, model.PartiallyFulfilled, model.NotFulfilled},
			},
			{Name: model.FieldCritique, Label: "Critique", Type: TypeText, Required: true},
			{Name: model.FieldSuggestions, Label: "Suggestions", Type: TypeText},
		},
	}
}

// TestCase is the browser test execution schema.
func TestCase() *Schema {
	return &Schema{
		Name:     model.SchemaTestCase,
		Title:    "Test Execution Results",
		Envelope: "results",
		Header:   model.FieldTestCaseID,
		LongText: model.FieldDescription,
		Fields: []Field{
			{Name: model.FieldTestCaseID, Label: "Test Case ID", Type: TypeString, Required: true, Key: true},
			{Name: model.FieldDescription, Label: "Description", Type: TypeText, Required: true},
			{
				Name: model.FieldStatus, Label: "Status", Type: TypeEnum, Required: true, Key: true,
				Enum: []string{model.StatusPass, model.StatusFail},
			},
		},
	}
}
