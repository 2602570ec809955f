package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/keymint/keymint/internal/model"
	"github.com/keymint/keymint/internal/token"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage personal access tokens",
		Long:  "Issue, list, inspect, verify, and revoke personal access tokens directly against the token store.",
	}

	cmd.AddCommand(newTokenCreateCmd())
	cmd.AddCommand(newTokenListCmd())
	cmd.AddCommand(newTokenInspectCmd())
	cmd.AddCommand(newTokenRevokeCmd())
	cmd.AddCommand(newTokenRevokeAllCmd())
	cmd.AddCommand(newTokenVerifyCmd())

	return cmd
}

// openManager opens the configured store and wraps it in a token manager.
// The caller must Close the returned store.
func openManager() (*token.Manager, interface{ Close() error }, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	st, err := openTokenStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open token store: %w", err)
	}
	return token.NewManager(st), st, nil
}

// ---------- token create ----------

func newTokenCreateCmd() *cobra.Command {
	var (
		owner  string
		scopes []string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Issue a new token",
		Long:  "Issue a new token for an owner. The raw credential is shown once and cannot be retrieved again.",
		Example: `  keymint token create ci-bot --owner alice --scopes deploy.*,repo.read
  keymint token create admin-cli --owner alice`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenCreate(owner, args[0], scopes)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner the token acts on behalf of (required)")
	cmd.Flags().StringSliceVar(&scopes, "scopes", nil, "Scopes to grant (default: * for full access)")
	cmd.MarkFlagRequired("owner")

	return cmd
}

func runTokenCreate(owner, name string, scopes []string) error {
	mgr, closer, err := openManager()
	if err != nil {
		return err
	}
	defer closer.Close()

	tok, credential, err := mgr.Generate(context.Background(), owner, name, model.ScopeList(scopes))
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	fmt.Println("Token created:")
	fmt.Println()
	fmt.Printf("  Credential: %s\n", credential)
	fmt.Printf("  ID:         %s\n", tok.ID)
	fmt.Printf("  Owner:      %s\n", tok.OwnerID)
	fmt.Printf("  Name:       %s\n", tok.Name)
	fmt.Printf("  Scopes:     %s\n", strings.Join(tok.Scopes, ", "))
	fmt.Println()
	fmt.Println("  Save this credential now - it cannot be retrieved again.")
	return nil
}

// ---------- token list ----------

func newTokenListCmd() *cobra.Command {
	var (
		owner      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List an owner's tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenList(owner, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner whose tokens to list (required)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.MarkFlagRequired("owner")

	return cmd
}

func runTokenList(owner string, jsonOutput bool) error {
	mgr, closer, err := openManager()
	if err != nil {
		return err
	}
	defer closer.Close()

	toks, err := mgr.List(context.Background(), owner)
	if err != nil {
		return fmt.Errorf("list tokens: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(toks)
	}

	if len(toks) == 0 {
		fmt.Printf("No tokens for owner %q. Use 'keymint token create' to issue one.\n", owner)
		return nil
	}

	fmt.Printf("%-28s %-20s %-24s %-20s %s\n", "ID", "NAME", "SCOPES", "CREATED", "LAST USED")
	fmt.Printf("%-28s %-20s %-24s %-20s %s\n", "--", "----", "------", "-------", "---------")
	for _, tok := range toks {
		lastUsed := "never"
		if tok.LastUsedAt != nil {
			lastUsed = tok.LastUsedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%-28s %-20s %-24s %-20s %s\n",
			tok.ID, tok.Name, strings.Join(tok.Scopes, ","),
			tok.CreatedAt.Format("2006-01-02 15:04:05"), lastUsed)
	}

	return nil
}

// ---------- token inspect ----------

func newTokenInspectCmd() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "inspect <token-id>",
		Short: "Show one token's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenInspect(owner, args[0])
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner of the token (required)")
	cmd.MarkFlagRequired("owner")

	return cmd
}

func runTokenInspect(owner, id string) error {
	mgr, closer, err := openManager()
	if err != nil {
		return err
	}
	defer closer.Close()

	tok, err := mgr.FindByID(context.Background(), owner, id)
	if err != nil {
		return fmt.Errorf("inspect token: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(tok)
}

// ---------- token revoke ----------

func newTokenRevokeCmd() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "revoke <token-id>",
		Short: "Revoke a token",
		Long:  "Permanently revoke a token by its id or full credential. A revoked token fails authentication immediately.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenRevoke(owner, args[0])
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner of the token (required)")
	cmd.MarkFlagRequired("owner")

	return cmd
}

func runTokenRevoke(owner, idOrCredential string) error {
	mgr, closer, err := openManager()
	if err != nil {
		return err
	}
	defer closer.Close()

	if err := mgr.Revoke(context.Background(), owner, idOrCredential); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	fmt.Println("Token revoked.")
	return nil
}

// ---------- token revoke-all ----------

func newTokenRevokeAllCmd() *cobra.Command {
	var (
		owner string
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "revoke-all",
		Short: "Revoke every token of an owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenRevokeAll(owner, yes)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner whose tokens to revoke (required)")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")
	cmd.MarkFlagRequired("owner")

	return cmd
}

func runTokenRevokeAll(owner string, yes bool) error {
	if !yes {
		fmt.Printf("Revoke ALL tokens for owner %q? [y/N] ", owner)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	mgr, closer, err := openManager()
	if err != nil {
		return err
	}
	defer closer.Close()

	n, err := mgr.RevokeAll(context.Background(), owner)
	if err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}

	fmt.Printf("Revoked %d token(s) for owner %q.\n", n, owner)
	return nil
}

// ---------- token verify ----------

func newTokenVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [credential]",
		Short: "Verify a credential against the store",
		Long: `Check whether a credential authenticates and show the token it resolves to.
When no credential argument is given it is read from stdin, hidden when stdin
is a terminal, so the secret stays out of shell history.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			credential := ""
			if len(args) > 0 {
				credential = args[0]
			}
			return runTokenVerify(credential)
		},
	}

	return cmd
}

func runTokenVerify(credential string) error {
	if credential == "" {
		var err error
		credential, err = readCredential()
		if err != nil {
			return err
		}
	}

	mgr, closer, err := openManager()
	if err != nil {
		return err
	}
	defer closer.Close()

	tok, err := mgr.Authenticate(context.Background(), credential)
	if err != nil {
		return fmt.Errorf("credential rejected: %w", err)
	}

	fmt.Println("Credential OK.")
	fmt.Printf("  ID:     %s\n", tok.ID)
	fmt.Printf("  Owner:  %s\n", tok.OwnerID)
	fmt.Printf("  Name:   %s\n", tok.Name)
	fmt.Printf("  Scopes: %s\n", strings.Join(tok.Scopes, ", "))
	return nil
}

// readCredential reads a credential from stdin, without echo when stdin is
// a terminal.
func readCredential() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Credential: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read credential: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read credential: %w", err)
	}
	return strings.TrimSpace(line), nil
}
