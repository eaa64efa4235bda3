package toolchain

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func fakeErdpy(min string, found bool, version string) (*Erdpy, *int) {
	lookups := 0
	e := NewErdpy("erdpy", min)
	e.lookPath = func(file string) (string, error) {
		lookups++
		if !found {
			return "", errors.New("executable file not found in $PATH")
		}
		return "/usr/local/bin/" + file, nil
	}
	e.versionOutput = func(ctx context.Context, program string) ([]byte, error) {
		if program != "/usr/local/bin/erdpy" {
			return nil, errors.New("unexpected program " + program)
		}
		return []byte(version), nil
	}
	return e, &lookups
}

func TestRequire(t *testing.T) {
	testCases := []struct {
		name    string
		min     string
		found   bool
		version string
		errstr  string
	}{
		{"found", "", true, "", ""},
		{"missing", "", false, "", "erdpy is required: not found"},
		{"new enough", "0.7.0", true, "erdpy 0.7.2\n", ""},
		{"exact", "1.0.0", true, "1.0.0", ""},
		{"too old", "1.0.0", true, "erdpy 0.9.1", "version 0.9.1 installed, 1.0.0 or later needed"},
		{"no version", "1.0.0", true, "command not understood", "could not determine version"},
	}

	for _, tc := range testCases {
		e, _ := fakeErdpy(tc.min, tc.found, tc.version)
		err := e.Require(context.Background())
		if tc.errstr == "" {
			if err != nil {
				t.Errorf("%s: unexpected error %v", tc.name, err)
			}
			continue
		}
		var missing *MissingError
		if !errors.As(err, &missing) {
			t.Errorf("%s: expected a MissingError, got %v", tc.name, err)
			continue
		}
		if !strings.Contains(err.Error(), tc.errstr) {
			t.Errorf("%s: expected %q in %q", tc.name, tc.errstr, err.Error())
		}
	}
}

func TestRequireCachesSuccess(t *testing.T) {
	e, lookups := fakeErdpy("", true, "")
	for i := 0; i < 3; i++ {
		if err := e.Require(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if *lookups != 1 {
		t.Fatalf("expected one lookup, got %d", *lookups)
	}
}

func TestRequireRetriesFailure(t *testing.T) {
	e, lookups := fakeErdpy("", false, "")
	e.Require(context.Background())
	e.Require(context.Background())
	if *lookups != 2 {
		t.Fatalf("expected two lookups, got %d", *lookups)
	}
}

func TestRequireInvalidMinVersion(t *testing.T) {
	e, _ := fakeErdpy("not a version", true, "1.0.0")
	err := e.Require(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	var missing *MissingError
	if errors.As(err, &missing) {
		t.Fatalf("a configuration error is not a missing dependency: %v", err)
	}
}
