package pathutils_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/temirov/reltrain/internal/utils/path"
)

func TestHomeExpanderExpand(testInstance *testing.T) {
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) { return "/home/releaser", nil })

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "bare_tilde", input: "~", expected: "/home/releaser"},
		{name: "tilde_slash", input: "~/src/alpha", expected: "/home/releaser/src/alpha"},
		{name: "other_user", input: "~bob/src", expected: "~bob/src"},
		{name: "absolute", input: "/srv/alpha", expected: "/srv/alpha"},
		{name: "empty", input: "", expected: ""},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, expander.Expand(testCase.input))
		})
	}
}

func TestHomeExpanderKeepsPathWhenHomeUnknown(testInstance *testing.T) {
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) { return "", errors.New("no home") })
	require.Equal(testInstance, "~/src", expander.Expand("~/src"))
}

func TestRepositoryPathSanitizerNormalizesInputs(testInstance *testing.T) {
	temporaryDirectory := testInstance.TempDir()
	homeDirectory := filepath.Join(temporaryDirectory, "home")
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) { return homeDirectory, nil })
	workspace := filepath.Join(temporaryDirectory, "workspace")

	testCases := []struct {
		name            string
		configuration   pathutils.RepositoryPathSanitizerConfiguration
		inputs          []string
		expectedOutputs []string
	}{
		{
			name:            "trims_expands_and_deduplicates",
			inputs:          []string{"", "  " + workspace + "\t", "~/src/alpha", workspace + "/"},
			expectedOutputs: []string{workspace, filepath.Join(homeDirectory, "src", "alpha")},
		},
		{
			name:            "prunes_nested_roots",
			configuration:   pathutils.RepositoryPathSanitizerConfiguration{PruneNestedPaths: true},
			inputs:          []string{filepath.Join(workspace, "team"), workspace, workspace + "-other"},
			expectedOutputs: []string{workspace, workspace + "-other"},
		},
		{
			name:            "blank_inputs_yield_nil",
			inputs:          []string{"  ", "\n"},
			expectedOutputs: nil,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			sanitizer := pathutils.NewRepositoryPathSanitizerWithConfiguration(expander, testCase.configuration)
			require.Equal(testInstance, testCase.expectedOutputs, sanitizer.Sanitize(testCase.inputs))
		})
	}
}
