package tests_test

import (
	"path/filepath"
	"testing"

	"github.com/containerd/nerdctl/mod/tigron/expect"
	"github.com/containerd/nerdctl/mod/tigron/test"

	"github.com/farcloser/hydrophone/tests/testutils"
)

func TestInspectCLI(t *testing.T) {
	testCase := testutils.Setup()

	testCase.SubTests = []*test.Case{
		{
			Description: "inspect without arguments fails",
			Command:     test.Command("inspect"),
			Expected:    test.Expects(expect.ExitCodeGenericFail, nil, nil),
		},
		{
			Description: "inspect an empty month folder fails",
			Setup: func(data test.Data, helpers test.Helpers) {
				writeExport(helpers, data.Temp().Path("raw", "2018_10", "notes.txt"), nil)
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return helpers.Command("inspect", "--bands", exportHeader, data.Temp().Path("raw", "2018_10"))
			},
			Expected: test.Expects(expect.ExitCodeGenericFail, nil, nil),
		},
		{
			Description: "inspect reports the month",
			Setup: func(data test.Data, helpers test.Helpers) {
				data.Labels().Set("raw", rawDataset(data, helpers))
			},
			Command: func(data test.Data, helpers test.Helpers) test.TestableCommand {
				return helpers.Command("inspect", "--debug", "--bands", exportHeader, filepath.Join(data.Labels().Get("raw"), "2018_10"))
			},
			Expected: func(_ test.Data, _ test.Helpers) *test.Expected {
				return &test.Expected{
					ExitCode: expect.ExitCodeSuccess,
					Output: expect.All(
						expectContains("2018_10"),
						expectContains("input_rows"),
					),
				}
			},
		},
	}

	testCase.Run(t)
}
