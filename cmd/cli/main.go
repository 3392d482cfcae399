// Command cli is an interactive SQL shell over any registered relata
// backend. Point it at a locator and type SQL; statements run inside
// one session transaction until .commit or .rollback.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/relatadb/relata/backend"
	"github.com/relatadb/relata/db"

	_ "github.com/relatadb/relata/backend/duckdb"
	_ "github.com/relatadb/relata/backend/postgres"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

// Version is set at build time via -ldflags
var Version = "dev"

// CLI holds the shell state
type CLI struct {
	db          *db.DB
	session     *db.Session
	history     []string
	historyFile string
}

func main() {
	locator := flag.String("dsn", "duckdb://", "Database locator, e.g. postgresql://user@host/db or duckdb:///path.db")
	sqlFile := flag.String("sqlFile", "", "SQL file to execute (non-interactive)")
	flag.Parse()

	ctx := context.Background()

	printBanner()

	database, err := db.Open(ctx, *locator)
	if err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
		os.Exit(1)
	}
	defer database.Close(ctx)

	fmt.Printf("%sConnected: %s%s\n", SuccessColor, *locator, ResetColor)

	cli := &CLI{
		db:          database,
		session:     database.Session(),
		history:     make([]string, 0),
		historyFile: getHistoryPath(),
	}
	defer cli.session.Close(ctx)

	cli.loadHistory()

	if *sqlFile != "" {
		if err := cli.importFile(ctx, *sqlFile); err != nil {
			fmt.Printf("%sError importing file: %v%s\n", ErrorColor, err, ResetColor)
			os.Exit(1)
		}
		if err := cli.session.Commit(ctx); err != nil {
			fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
			os.Exit(1)
		}
		return
	}

	cli.run(ctx)
}

func printBanner() {
	fmt.Println()
	bannerWidth := 39 // inner width of the banner box
	versionLine := fmt.Sprintf("relata v%s", Version)
	padding := bannerWidth - len(versionLine) - 2 // -2 for "  " margins
	if padding < 0 {
		padding = 0
	}
	leftPad := padding / 2
	rightPad := padding - leftPad

	fmt.Printf("%s%s╔═══════════════════════════════════════╗%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s║ %*s%s%*s ║%s\n", BoldColor, PromptColor, leftPad, "", versionLine, rightPad, "", ResetColor)
	fmt.Printf("%s%s║   SQL Shell                           ║%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s╚═══════════════════════════════════════╝%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println()
	fmt.Println("Type .help for commands, .quit to exit")
	fmt.Println()
}

func (cli *CLI) run(ctx context.Context) {
	reader := bufio.NewReader(os.Stdin)
	var multiLineBuffer strings.Builder

	for {
		fmt.Print(cli.getPrompt(multiLineBuffer.Len() > 0))

		input, err := reader.ReadString('\n')
		if err != nil {
			cli.quit(ctx)
			return
		}

		input = strings.TrimSuffix(input, "\n")
		input = strings.TrimSuffix(input, "\r")

		if strings.TrimSpace(input) == "" {
			continue
		}

		// Special commands apply only outside multi-line mode
		if multiLineBuffer.Len() == 0 && strings.HasPrefix(input, ".") {
			if cli.handleCommand(ctx, input) {
				continue
			}
		}

		// Multi-line support: accumulate until we see a semicolon
		multiLineBuffer.WriteString(input)

		trimmed := strings.TrimSpace(multiLineBuffer.String())
		if !strings.HasSuffix(trimmed, ";") {
			multiLineBuffer.WriteString(" ")
			continue
		}

		stmt := strings.TrimSuffix(trimmed, ";")
		multiLineBuffer.Reset()

		if strings.TrimSpace(stmt) == "" {
			continue
		}

		cli.addToHistory(stmt + ";")
		cli.execute(ctx, stmt)
	}
}

func (cli *CLI) execute(ctx context.Context, stmt string) {
	if returnsRows(stmt) {
		rows, err := cli.session.Fetch(ctx, stmt, nil)
		if err != nil {
			fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
			return
		}
		printRows(os.Stdout, rows)
		return
	}

	n, err := cli.session.Execute(ctx, stmt, nil)
	if err != nil {
		fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		return
	}
	fmt.Printf("%s✓ %d row(s) affected%s\n", SuccessColor, n, ResetColor)
}

// returnsRows reports whether a statement produces a result set and
// should run through a cursor rather than plain execution.
func returnsRows(stmt string) bool {
	head := strings.ToUpper(strings.TrimSpace(stmt))
	for _, kw := range []string{"SELECT", "WITH", "SHOW", "VALUES", "DESCRIBE", "PRAGMA", "EXPLAIN"} {
		if strings.HasPrefix(head, kw) {
			return true
		}
	}
	return strings.Contains(head, " RETURNING ")
}

// printRows renders rows as an aligned text table.
func printRows(w *os.File, rows []*backend.DictRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return
	}

	keys := rows[0].Keys()
	widths := make([]int, len(keys))
	for i, k := range keys {
		widths[i] = len(k)
	}
	cells := make([][]string, len(rows))
	for r, row := range rows {
		cells[r] = make([]string, len(keys))
		for i := range keys {
			v, _ := row.At(i)
			s := fmt.Sprintf("%v", v)
			cells[r][i] = s
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}

	for i, k := range keys {
		fmt.Fprintf(w, "%-*s  ", widths[i], k)
	}
	fmt.Fprintln(w)
	for i := range keys {
		fmt.Fprintf(w, "%s  ", strings.Repeat("-", widths[i]))
	}
	fmt.Fprintln(w)
	for _, row := range cells {
		for i, s := range row {
			fmt.Fprintf(w, "%-*s  ", widths[i], s)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "(%d row(s))\n", len(rows))
}

func (cli *CLI) getPrompt(multiLine bool) string {
	if multiLine {
		return fmt.Sprintf("%s  ...>%s ", PromptColor, ResetColor)
	}
	return fmt.Sprintf("%srelata>%s ", PromptColor, ResetColor)
}

func (cli *CLI) handleCommand(ctx context.Context, input string) bool {
	cmd := strings.ToLower(strings.TrimSpace(input))
	parts := strings.Fields(cmd)

	if len(parts) == 0 {
		return true
	}

	switch parts[0] {
	case ".quit", ".exit", ".q":
		cli.quit(ctx)
		os.Exit(0)

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".commit":
		if err := cli.session.Commit(ctx); err != nil {
			fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		} else {
			fmt.Printf("%s✓ Committed%s\n", SuccessColor, ResetColor)
		}

	case ".rollback":
		if err := cli.session.Rollback(ctx); err != nil {
			fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		} else {
			fmt.Printf("%s✓ Rolled back%s\n", SuccessColor, ResetColor)
		}

	case ".server":
		v, err := cli.db.ServerVersion(ctx)
		if err != nil {
			fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		} else {
			fmt.Printf("%s (%s)\n", v, cli.db.Connector().Dialect().Name)
		}

	case ".clear", ".cls":
		fmt.Print("\033[H\033[2J")

	case ".history":
		cli.printHistory()

	case ".version":
		fmt.Printf("relata version %s\n", Version)

	case ".import":
		if len(parts) > 1 {
			if err := cli.importFile(ctx, parts[1]); err != nil {
				fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
			}
		} else {
			fmt.Printf("%s✗ Usage: .import <file.sql>%s\n", ErrorColor, ResetColor)
		}

	default:
		fmt.Printf("%s✗ Unknown command: %s (type .help for commands)%s\n", ErrorColor, parts[0], ResetColor)
	}

	return true
}

func (cli *CLI) printHelp() {
	fmt.Println()
	fmt.Printf("%s%sSpecial Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println("  .help, .h        Show this help message")
	fmt.Println("  .quit, .exit     Exit the shell")
	fmt.Println("  .commit          Commit the open transaction")
	fmt.Println("  .rollback        Roll back the open transaction")
	fmt.Println("  .server          Show the connected server version")
	fmt.Println("  .import <file>   Execute SQL statements from a file")
	fmt.Println("  .history         Show command history")
	fmt.Println("  .clear           Clear the screen")
	fmt.Println("  .version         Show version info")
	fmt.Println()
	fmt.Printf("%s%sSQL:%s any statement the connected engine accepts,\n", BoldColor, PromptColor, ResetColor)
	fmt.Println("terminated by a semicolon. Statements run inside one")
	fmt.Println("transaction until .commit or .rollback; quitting rolls back.")
	fmt.Println()
}

func (cli *CLI) quit(ctx context.Context) {
	if err := cli.session.Close(ctx); err != nil {
		fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
	}
	fmt.Printf("\n%sGoodbye!%s\n", SuccessColor, ResetColor)
	cli.saveHistory()
}

func (cli *CLI) addToHistory(cmd string) {
	// Don't add duplicates of the last command
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)

	// Limit history size
	if len(cli.history) > 1000 {
		cli.history = cli.history[len(cli.history)-1000:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Println("No command history")
		return
	}

	start := 0
	if len(cli.history) > 20 {
		start = len(cli.history) - 20
	}

	for i := start; i < len(cli.history); i++ {
		fmt.Printf("  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".relata_history")
}

func (cli *CLI) loadHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		cli.history = append(cli.history, scanner.Text())
	}
}

func (cli *CLI) saveHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Create(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	// Save last 1000 entries
	start := 0
	if len(cli.history) > 1000 {
		start = len(cli.history) - 1000
	}

	for i := start; i < len(cli.history); i++ {
		_, _ = file.WriteString(cli.history[i] + "\n")
	}
}

// importFile reads and executes SQL statements from a file
func (cli *CLI) importFile(ctx context.Context, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	statements := splitStatements(string(data))

	successCount := 0
	errorCount := 0

	for i, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || strings.HasPrefix(stmt, "--") {
			continue
		}

		if _, err := cli.session.Execute(ctx, stmt, nil); err != nil {
			fmt.Printf("%s[%d] ✗ %s%s\n", ErrorColor, i+1, truncate(stmt, 50), ResetColor)
			fmt.Printf("%s    %v%s\n", ErrorColor, err, ResetColor)
			errorCount++
			continue
		}
		successCount++
	}

	fmt.Printf("%s✓ %d statement(s) executed", SuccessColor, successCount)
	if errorCount > 0 {
		fmt.Printf(", %s%d failed%s", ErrorColor, errorCount, SuccessColor)
	}
	fmt.Printf("%s\n", ResetColor)
	return nil
}

// splitStatements splits SQL text on semicolons, respecting single
// quoted strings.
func splitStatements(content string) []string {
	var statements []string
	var current strings.Builder
	inString := false

	for _, ch := range content {
		switch {
		case ch == '\'':
			inString = !inString
			current.WriteRune(ch)
		case ch == ';' && !inString:
			statements = append(statements, current.String())
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		statements = append(statements, current.String())
	}
	return statements
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
