package predicate

import (
	"testing"

	"github.com/AbhinavRai30/api-framework/internal/value"
)

func TestParseOperator(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "supported", input: "equals"},
		{name: "supported_type_is", input: "type_is"},
		{name: "case_and_space", input: " Greater_Than "},
		{name: "unsupported", input: "bad", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOperator(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOperator() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateExpr(t *testing.T) {
	tests := []struct {
		name    string
		expr    Expr
		wantErr bool
	}{
		{
			name: "exists_without_value",
			expr: Expr{Op: OpExists},
		},
		{
			name:    "exists_with_value",
			expr:    Expr{Op: OpExists, Value: value.Bool(true), HasValue: true},
			wantErr: true,
		},
		{
			name:    "equals_without_value",
			expr:    Expr{Op: OpEquals},
			wantErr: true,
		},
		{
			name: "equals_with_value",
			expr: Expr{Op: OpEquals, Value: value.Text("ok"), HasValue: true},
		},
		{
			name: "type_is_valid",
			expr: Expr{Op: OpTypeIs, Value: value.Text("array"), HasValue: true},
		},
		{
			name:    "type_is_invalid_value",
			expr:    Expr{Op: OpTypeIs, Value: value.Text("list"), HasValue: true},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExpr(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateExpr() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func with(op Operator, v value.Value) Expr {
	return Expr{Op: op, Value: v, HasValue: true}
}

func TestEvaluateExpr(t *testing.T) {
	abc := value.Seq(value.Text("a"), value.Text("b"), value.Text("c"))

	tests := []struct {
		name      string
		expr      Expr
		actual    value.Value
		want      bool
		wantError bool
	}{
		{name: "equals_numeric_cross_form", expr: with(OpEquals, value.Float(42)), actual: value.Int(42), want: true},
		{name: "equals_number_vs_text", expr: with(OpEquals, value.Text("42")), actual: value.Int(42), want: false},
		{name: "not_equals", expr: with(OpNotEquals, value.Text("x")), actual: value.Text("y"), want: true},
		{name: "contains_string", expr: with(OpContains, value.Text("John")), actual: value.Text("John Doe"), want: true},
		{name: "contains_sequence_element", expr: with(OpContains, value.Text("b")), actual: abc, want: true},
		{name: "contains_non_string_actual", expr: with(OpContains, value.Text("John")), actual: value.Int(123), wantError: true},
		{name: "not_contains", expr: with(OpNotContains, value.Text("z")), actual: value.Text("abc"), want: true},
		{name: "regex", expr: with(OpRegex, value.Text(`^v\d+`)), actual: value.Text("v10"), want: true},
		{name: "regex_invalid", expr: with(OpRegex, value.Text(`[`)), actual: value.Text("v10"), wantError: true},
		{name: "length", expr: with(OpLength, value.Int(3)), actual: abc, want: true},
		{name: "length_text_runes", expr: with(OpLength, value.Int(4)), actual: value.Text("café"), want: true},
		{name: "length_float_expected_is_invalid", expr: with(OpLength, value.Float(3.5)), actual: abc, wantError: true},
		{name: "length_of_number_is_invalid", expr: with(OpLength, value.Int(1)), actual: value.Int(1), wantError: true},
		{name: "greater_than", expr: with(OpGreaterThan, value.Int(100)), actual: value.Float(142.5), want: true},
		{name: "less_than_or_equal", expr: with(OpLessThanOrEqual, value.Int(5)), actual: value.Int(5), want: true},
		{name: "greater_than_text_is_invalid", expr: with(OpGreaterThan, value.Int(1)), actual: value.Text("2"), wantError: true},
		{name: "starts_with", expr: with(OpStartsWith, value.Text("The")), actual: value.Text("The Matrix"), want: true},
		{name: "ends_with", expr: with(OpEndsWith, value.Text("trix")), actual: value.Text("The Matrix"), want: true},
		{name: "in_collection", expr: with(OpIn, abc), actual: value.Text("b"), want: true},
		{name: "in_non_collection", expr: with(OpIn, value.Text("abc")), actual: value.Text("b"), wantError: true},
		{name: "exists_true", expr: Expr{Op: OpExists}, actual: value.Text("non-empty"), want: true},
		{name: "exists_false_for_empty_string", expr: Expr{Op: OpExists}, actual: value.Text(""), want: false},
		{name: "exists_false_for_null", expr: Expr{Op: OpExists}, actual: value.Null(), want: false},
		{name: "exists_true_for_false", expr: Expr{Op: OpExists}, actual: value.Bool(false), want: true},
		{name: "type_is_array", expr: with(OpTypeIs, value.Text("array")), actual: abc, want: true},
		{name: "type_is_object", expr: with(OpTypeIs, value.Text("object")), actual: value.Map(value.Pair("id", value.Int(1))), want: true},
		{name: "type_is_number", expr: with(OpTypeIs, value.Text("number")), actual: value.Int(42), want: true},
		{name: "type_is_boolean", expr: with(OpTypeIs, value.Text("boolean")), actual: value.Bool(true), want: true},
		{name: "type_is_null", expr: with(OpTypeIs, value.Text("null")), actual: value.Null(), want: true},
		{name: "type_is_string_mismatch", expr: with(OpTypeIs, value.Text("string")), actual: value.Int(1), want: false},
		{name: "type_is_invalid_expected_type", expr: with(OpTypeIs, value.Int(10)), actual: abc, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateExpr(tt.expr, tt.actual)
			if (err != nil) != tt.wantError {
				t.Fatalf("EvaluateExpr() error = %v, wantError %v", err, tt.wantError)
			}
			if err == nil && got != tt.want {
				t.Fatalf("EvaluateExpr() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCachedRegexCompilerCachesByPattern(t *testing.T) {
	t.Parallel()

	compiler := newCachedRegexCompiler()

	first, err := compiler.Compile("^a+$")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	second, err := compiler.Compile("^a+$")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if first != second {
		t.Fatalf("Compile() returned different compiled regex pointers for same pattern")
	}

	if _, err := compiler.Compile("[invalid"); err == nil {
		t.Fatal("Compile() expected invalid regex error")
	}
}
