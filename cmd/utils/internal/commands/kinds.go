package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/appetiteclub/posboard/pkg/enums/updatekind"
)

// Kinds lists the update kinds.
func Kinds(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tLABEL\tAREA")
	for _, k := range updatekind.All {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", k.Code(), k.Label(), k.Resource())
	}
	return tw.Flush()
}
