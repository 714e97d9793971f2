package validation

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type Auth struct {
	Region string `yaml:"region" validate:"required"`
	Key    string `yaml:"key" validate:"required_with=Secret"`
	Secret string `yaml:"secret"`
}

type queue struct {
	URL  string `yaml:"uri" validate:"required"`
	Auth `yaml:",inline"`
}

type sink struct {
	ID    string `yaml:"id" validate:"required"`
	Type  string `yaml:"type" validate:"oneof=sqs http"`
	Queue *queue `yaml:"sqs"`
}

func TestStructReportsFilePaths(t *testing.T) {
	err := Struct(sink{Type: "sqs", Queue: &queue{Auth: Auth{Secret: "s"}}})

	var fields FieldErrors
	if !errors.As(err, &fields) {
		t.Fatalf("expected FieldErrors, got %v", err)
	}
	want := FieldErrors{
		{Field: "id", Err: "This field is required"},
		{Field: "sqs.uri", Err: "This field is required"},
		{Field: "sqs.region", Err: "This field is required"},
		{Field: "sqs.key", Err: "This field is required when secret is set"},
	}
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
}

func TestStructValid(t *testing.T) {
	if err := Struct(sink{ID: "a", Type: "http"}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestStructTranslatesOtherTags(t *testing.T) {
	err := Struct(sink{ID: "a", Type: "kafka"})
	if err == nil || err.Error() != "type: type must be one of [sqs http]" {
		t.Fatalf("unexpected error %v", err)
	}
}
