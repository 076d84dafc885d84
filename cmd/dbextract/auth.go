package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"dbextract/pkg/auth"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage database credentials",
	Long: `Manage stored database credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Environment variables (DBEXTRACT_DB_USER / DBEXTRACT_DB_PASSWORD)

Stored logins are looked up by profile name, so several databases can be
kept side by side and selected with --profile at extraction time.`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [profile]",
	Short: "Store a database login securely",
	Long: `Store a database login in the system keychain.

You will be prompted for the database user and password. The password is
read without echo. If no profile name is given, "default" is used.`,
	Example: `  # Store the default login
  dbextract auth login

  # Store a login under a named profile
  dbextract auth login reporting`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [profile]",
	Short: "Remove a stored login",
	Long: `Remove a stored database login from the system keychain.

If no profile name is given, "default" is removed.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogout,
}

// showCmd represents the auth show command
var showCmd = &cobra.Command{
	Use:   "show [profile]",
	Short: "Show a stored login with the password masked",
	Args:  cobra.MaximumNArgs(1),
	Run:   runShow,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(showCmd)
}

func profileArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "default"
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize credential manager:", err)
		os.Exit(1)
	}

	profile := profileArg(args)
	reader := bufio.NewReader(os.Stdin)

	// Confirm before replacing an existing login
	if existing, _ := manager.Retrieve(profile); existing != nil {
		fmt.Printf("Profile '%s' already exists. Update credentials? (y/N): ", profile)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Print("Database user: ")
	input, err := reader.ReadString('\n')
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to read user:", err)
		os.Exit(1)
	}
	user := strings.TrimSpace(input)
	if user == "" {
		fmt.Fprintln(os.Stderr, "Database user is required")
		os.Exit(1)
	}

	fmt.Print("Password: ")
	password, err := readPassword()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to read password:", err)
		os.Exit(1)
	}
	if password == "" {
		fmt.Fprintln(os.Stderr, "Password is required")
		os.Exit(1)
	}

	creds := &auth.Credentials{
		Profile:      profile,
		User:         user,
		Password:     password,
		LastModified: time.Now(),
	}

	if err := manager.Store(creds); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to store credentials:", err)
		os.Exit(1)
	}

	fmt.Printf("Credentials stored for profile '%s'\n", profile)
	fmt.Println("\nUse the --profile flag to select this login:")
	fmt.Printf("  dbextract extract --profile %s ...\n", profile)
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize credential manager:", err)
		os.Exit(1)
	}

	profile := profileArg(args)
	if err := manager.Delete(profile); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to remove credentials:", err)
		os.Exit(1)
	}
	fmt.Printf("Credentials removed for profile '%s'\n", profile)
}

func runShow(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize credential manager:", err)
		os.Exit(1)
	}

	profile := profileArg(args)
	creds, err := manager.Retrieve(profile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "No stored login for profile '%s'. Use 'dbextract auth login'.\n", profile)
		os.Exit(1)
	}

	sanitized := auth.Sanitize(creds)
	fmt.Printf("Profile:  %s\n", sanitized.Profile)
	fmt.Printf("User:     %s\n", sanitized.User)
	fmt.Printf("Password: %s\n", sanitized.Password)
	if !sanitized.LastModified.IsZero() {
		fmt.Printf("Stored:   %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
	}
}

// readPassword reads a password from stdin without echoing
func readPassword() (string, error) {
	// Try to read without echo
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println() // New line after password
		if err == nil {
			return string(password), nil
		}
	}

	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
