package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"

	"github.com/rubiojr/convos/pkg/expr"
	"github.com/rubiojr/convos/pkg/query"
	"github.com/rubiojr/convos/pkg/search"
	"github.com/rubiojr/convos/pkg/storage"
)

// Define styles using lipgloss
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1).
			Margin(0, 0, 1, 0)

	messageStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Margin(0, 0, 1, 2)

	contactStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("32"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Margin(1, 0)
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search stored messages",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "query",
				Usage: "Free-text search term (matches body, contact name and phone)",
			},
			&cli.StringSliceFlag{
				Name:  "group",
				Usage: "Restrict to contacts in this group id. Can be used multiple times",
			},
			&cli.StringSliceFlag{
				Name:  "label",
				Usage: "Require this flow label id. Can be used multiple times",
			},
			&cli.StringFlag{
				Name:  "start-date",
				Usage: "Only messages on or after this date (YYYY-MM-DD)",
			},
			&cli.StringFlag{
				Name:  "end-date",
				Usage: "Only messages on or before this date (YYYY-MM-DD, inclusive)",
			},
			&cli.StringFlag{
				Name:  "from-expression",
				Usage: "Relative lower bound, e.g. 'today - 7 days'",
			},
			&cli.StringFlag{
				Name:  "to-expression",
				Usage: "Relative upper bound, e.g. 'yesterday'",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results (0 uses the configured default)",
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Number of results to skip",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return searchMessages(c)
		},
	}
}

// searchMessages composes a query from the flags and prints the results
func searchMessages(c *cli.Command) error {
	cfg, st, err := openStorage(c.String("config"))
	if err != nil {
		return err
	}
	defer closeStorage(st)

	params := map[string][]string{}
	if v := c.String("query"); v != "" {
		params["q"] = []string{v}
	}
	if v := c.StringSlice("group"); len(v) > 0 {
		params["group"] = v
	}
	if v := c.StringSlice("label"); len(v) > 0 {
		params["label"] = v
	}
	if v := c.String("start-date"); v != "" {
		params["start_date"] = []string{v}
	}
	if v := c.String("end-date"); v != "" {
		params["end_date"] = []string{v}
	}
	if v := c.String("from-expression"); v != "" {
		params["from_expression"] = []string{v}
	}
	if v := c.String("to-expression"); v != "" {
		params["to_expression"] = []string{v}
	}

	term, args := search.ParseParams(params)
	if v := c.Int("limit"); v > 0 {
		args.Limit = v
	} else {
		args.Limit = cfg.SearchLimit
	}
	if v := c.Int("offset"); v > 0 {
		args.Offset = v
	}

	svc := search.NewService(st, expr.New())
	q, err := svc.Search(st.BaseQuery(), term, args)
	if err != nil {
		return fmt.Errorf("building query: %w", err)
	}

	messages, err := st.SearchMessages(q, args.Limit, args.Offset)
	if err != nil {
		return fmt.Errorf("searching messages: %w", err)
	}

	renderResults(term, messages)
	return nil
}

func renderResults(term string, messages []storage.Message) {
	title := "Messages"
	if term != "" {
		title = fmt.Sprintf("Messages matching %q", query.Normalize(term))
	}
	fmt.Println(titleStyle.Render(title))

	if len(messages) == 0 {
		fmt.Println(noDataStyle.Render("No messages found"))
		return
	}

	for _, msg := range messages {
		fmt.Println(messageStyle.Render(formatMessage(msg)))
	}
	fmt.Println(metaStyle.Render(fmt.Sprintf("%d messages", len(messages))))
}

func formatMessage(msg storage.Message) string {
	var b strings.Builder

	contact := msg.ContactName
	if contact == "" {
		contact = fmt.Sprintf("contact %d", msg.ContactID)
	}
	if msg.ContactPhone != "" {
		contact += " (" + msg.ContactPhone + ")"
	}
	b.WriteString(contactStyle.Render(contact))

	if msg.FlowLabel != "" {
		b.WriteString("  ")
		b.WriteString(labelStyle.Render("[" + msg.FlowLabel + "]"))
	}
	b.WriteString("\n")
	b.WriteString(msg.Body)
	b.WriteString("\n")
	b.WriteString(metaStyle.Render(msg.InsertedAt.Format("2006-01-02 15:04")))

	return b.String()
}
