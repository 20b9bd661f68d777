package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/appetiteclub/posboard/pkg/normalize"
	"github.com/aquamarinepk/aqm"
)

// NormalizeOptions configures the normalize command.
type NormalizeOptions struct {
	// Path of the JSON document; "" or "-" reads stdin.
	Path          string
	CandidateKeys []string
	IDAliases     []string
	EmptyPolicy   normalize.EmptyPolicy
}

// Normalize prints the normalized view of a backend response document.
func Normalize(opts NormalizeOptions, stdin io.Reader, out io.Writer, logger aqm.Logger) error {
	body, err := readDocument(opts.Path, stdin)
	if err != nil {
		return err
	}

	nopts := []normalize.Option{
		normalize.WithEmptySuccessPolicy(opts.EmptyPolicy),
		normalize.WithLogger(logger),
	}
	if len(opts.IDAliases) > 0 {
		nopts = append(nopts, normalize.WithIDAliases(opts.IDAliases...))
	}

	res := normalize.New(nopts...).Decode(body, opts.CandidateKeys...)

	report := struct {
		normalize.Result
		BranchName string `json:"branch_name"`
	}{Result: res, BranchName: res.Branch.String()}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("cannot write result: %w", err)
	}
	return nil
}

func readDocument(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		body, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("cannot read stdin: %w", err)
		}
		return body, nil
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return body, nil
}
