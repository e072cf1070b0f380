package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"flickrbackup/pkg/auth"
	"flickrbackup/pkg/ui"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Flickr API credentials",
	Long: `Manage stored Flickr API credentials.

Credentials are looked up in:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (FLICKRBACKUP_API_KEY, FLICKRBACKUP_API_SECRET)`,
}

var loginCmd = &cobra.Command{
	Use:   "login [profile]",
	Short: "Store a Flickr API key and secret",
	Example: `  flickrbackup auth login
  flickrbackup auth login family`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "List stored profiles with masked secrets",
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

var logoutCmd = &cobra.Command{
	Use:   "logout [profile]",
	Short: "Remove stored credentials",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd, showCmd, logoutCmd)
}

func profileArg(args []string) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0])
	}
	if profile != "" {
		return profile
	}
	return auth.DefaultProfile
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	name := profileArg(args)
	reader := bufio.NewReader(os.Stdin)

	auth.WriteAPIKeyGuide(os.Stdout)
	fmt.Println()

	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Printf("Profile '%s' already exists. Replace it? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	fmt.Print("API key: ")
	apiKey, err := readSecret(reader)
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}
	if len(apiKey) < 16 {
		return fmt.Errorf("that does not look like a Flickr API key")
	}

	fmt.Print("API secret (optional): ")
	apiSecret, err := readSecret(reader)
	if err != nil {
		return fmt.Errorf("failed to read API secret: %w", err)
	}

	fmt.Print("User id (NSID, e.g. 12345678@N00): ")
	userID, _ := reader.ReadString('\n')

	creds := &auth.Credentials{
		Name:      name,
		APIKey:    apiKey,
		APISecret: apiSecret,
		UserID:    strings.TrimSpace(userID),
	}
	if err := manager.Store(creds); err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Credentials saved for profile %s", name))
	printCredentials(auth.Sanitize(creds))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	profiles, err := manager.List()
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		ui.PrintWarning("No stored credentials. Run 'flickrbackup auth login'.")
		return nil
	}
	for _, creds := range profiles {
		printCredentials(auth.Sanitize(creds))
		fmt.Println()
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	name := profileArg(args)
	if err := manager.Delete(name); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Removed profile %s", name))
	return nil
}

func printCredentials(creds *auth.Credentials) {
	ui.PrintHighlight(creds.Name)
	ui.PrintInfo("  API key", creds.APIKey)
	if creds.APISecret != "" {
		ui.PrintInfo("  API secret", creds.APISecret)
	}
	if creds.UserID != "" {
		ui.PrintInfo("  User id", creds.UserID)
	}
	if !creds.LastModified.IsZero() {
		ui.PrintDim("  updated " + creds.LastModified.Format("2006-01-02 15:04"))
	}
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
