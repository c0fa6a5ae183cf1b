package r2client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

func TestConfig_Validation(t *testing.T) {
	t.Parallel()
	valid := Config{
		Endpoint:    "https://account.r2.cloudflarestorage.com",
		AccessKeyID: "key",
		SecretKey:   "secret",
		BucketName:  "metromate",
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing endpoint", func(c *Config) { c.Endpoint = "" }, true},
		{"missing access key", func(c *Config) { c.AccessKeyID = "" }, true},
		{"missing secret", func(c *Config) { c.SecretKey = "" }, true},
		{"missing bucket", func(c *Config) { c.BucketName = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_RejectsIncompleteConfig(t *testing.T) {
	t.Parallel()
	if _, err := New(context.Background(), Config{Endpoint: "https://x"}); err == nil {
		t.Error("expected error for incomplete config")
	}
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no such key", fmt.Errorf("wrapped: %w", &types.NoSuchKey{}), true},
		{"not found", &types.NotFound{}, true},
		{"api error code", &smithy.GenericAPIError{Code: "NoSuchKey"}, true},
		{"http 404", &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusNotFound}},
			Err:      errors.New("not found"),
		}, true},
		{"http 500", &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusInternalServerError}},
			Err:      errors.New("boom"),
		}, false},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"plain error", errors.New("network"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isNotFound(tt.err); got != tt.want {
				t.Errorf("isNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrimETag(t *testing.T) {
	t.Parallel()
	if got := trimETag(nil); got != "" {
		t.Errorf("nil etag = %q", got)
	}
	if got := trimETag(aws.String(`"abc123"`)); got != "abc123" {
		t.Errorf("quoted etag = %q", got)
	}
}
