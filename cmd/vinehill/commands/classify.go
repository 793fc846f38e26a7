package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dyluth/vinehill/internal/classify"
	"github.com/dyluth/vinehill/internal/config"
	"github.com/dyluth/vinehill/internal/printer"
)

var (
	classifySource string
	classifyBrand  string
)

var classifyCmd = &cobra.Command{
	Use:   "classify FILENAME...",
	Short: "Show the category and canonical name a file would get",
	Long: `Classify filenames offline, exactly as the bot would on upload.

The brand suffix comes from --brand, or brand_suffix and keywords in the
config file.

Examples:
  vinehill classify "Show_Name.S01E02.720p.mkv"
  vinehill classify --source "VINEHILL GAMES" VINEHILLGAMES_Thing.zip
  vinehill classify --brand ACME *.mkv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVarP(&classifySource, "source", "s", "", "Display name of the chat the file came from")
	classifyCmd.Flags().StringVarP(&classifyBrand, "brand", "b", "", "Brand suffix (overrides the config file)")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	brand := classifyBrand
	var kw classify.Keywords

	if cfg, err := config.Load(configPath); err == nil {
		kw = cfg.ClassifierKeywords()
		if brand == "" {
			brand = cfg.BrandSuffix
		}
	} else if brand == "" {
		return printer.Error(
			"no brand suffix",
			fmt.Sprintf("--brand was not given and %s could not be loaded: %v", configPath, err),
			[]string{"Pass the suffix explicitly:\n  vinehill classify --brand VINEHILL <filename>"},
		)
	}

	c := classify.New(brand, kw)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tNAME")
	for _, name := range args {
		res := c.Classify(name, classifySource)
		fmt.Fprintf(w, "%s\t%s\n", res.Category, res.Name)
	}
	return w.Flush()
}
