package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/invoker/internal/control"
	"github.com/vietddude/invoker/internal/resilience/classify"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <message>",
	Short: "Check whether an error message is a false-positive limit error",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClassify,
}

var listRules bool

func init() {
	classifyCmd.Flags().BoolVar(&listRules, "rules", false, "also list the configured rules")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rules, err := control.Rules(cfg.Classifier)
	if err != nil {
		return err
	}
	c := classify.New(nil, classify.WithRules(rules...))

	message := strings.Join(args, " ")
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	defer func() { _ = w.Flush() }()

	_, _ = fmt.Fprintln(w, "MESSAGE\tFALSE POSITIVE\tRULE")
	rule, ok := c.Match(message)
	name := "-"
	if ok {
		name = rule.Name()
	}
	_, _ = fmt.Fprintf(w, "%s\t%t\t%s\n", message, ok, name)

	if listRules {
		_, _ = fmt.Fprintln(w)
		for i, n := range c.RuleNames() {
			_, _ = fmt.Fprintf(w, "%d\t%s\t\n", i+1, n)
		}
	}
	return nil
}
