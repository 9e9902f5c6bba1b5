package validate

import (
	"testing"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type lineInput struct {
	Quantity int `json:"quantity" validate:"min=1"`
}

type sampleInput struct {
	Email string      `json:"email" validate:"required,email"`
	Items []lineInput `json:"items" validate:"required,min=1,dive"`
}

func TestStructPassesValidInput(t *testing.T) {
	err := Struct(sampleInput{Email: "a@example.com", Items: []lineInput{{Quantity: 2}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStructReportsNestedFields(t *testing.T) {
	err := Struct(sampleInput{Email: "nope", Items: []lineInput{{Quantity: 0}}})
	if err == nil {
		t.Fatal("expected validation error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected map details, got %T", typed.Details())
	}
	if details["email"] != "must be a valid email" {
		t.Fatalf("unexpected email detail %q", details["email"])
	}
	if details["items[0].quantity"] != "must be at least 1" {
		t.Fatalf("unexpected nested detail; details=%v", details)
	}
}
