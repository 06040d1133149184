package cel

// FilterExpressionExamples documents the filter surface exposed to
// subscription owners. Referenced by the API docs and the evaluator tests.
var FilterExpressionExamples = map[string]string{
	"trigger_type_equals":  `trigger_type == "analysis_completed"`,
	"data_field_equals":    `data.sentiment == "positive"`,
	"numeric_greater_than": `data.score > 75.0`,
	"string_contains":      `data.title.contains("renewal")`,
	"in_list":              `data.call_type in ["demo", "discovery", "negotiation"]`,
	"range_check":          `data.duration_minutes >= 15.0 && data.duration_minutes <= 120.0`,
	"has_field":            `has(data.deal_id) && data.deal_id != ""`,
	"nested_field":         `data.deal.stage == "closed_won"`,
	"combined_conditions":  `trigger_type == "analysis_completed" && data.score > 50.0`,
	"complex_logic":        `(data.sentiment == "negative" || data.risk_flagged == true) && has(data.account)`,
}
