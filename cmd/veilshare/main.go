package main

import (
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"veil.share/internal/client"
	"veil.share/internal/models"
)

var rootCmd = &cobra.Command{
	Use:   "veilshare",
	Short: "Share self-destructing, end-to-end encrypted secrets",
	Long: `veilshare encrypts a secret locally and publishes only ciphertext.
The decryption key travels in the share link's fragment and never
reaches the server.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(createCmd())
	rootCmd.AddCommand(revealCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func createCmd() *cobra.Command {
	var (
		server   string
		text     string
		file     string
		password string
		expiry   string
		views    int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Encrypt a secret and print its share link",
		RunE: func(cmd *cobra.Command, args []string) error {
			selection, err := models.ParseExpirySelection(expiry)
			if err != nil {
				return err
			}

			secret := client.Secret{
				Text:     text,
				Password: password,
				Expiry:   selection,
				MaxViews: views,
			}

			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("reading file: %w", err)
				}
				secret.FileData = data
				secret.FileName = filepath.Base(file)
				secret.MimeType = mime.TypeByExtension(filepath.Ext(file))
			}

			c := client.New(server, 15*time.Second)
			result, err := c.Create(cmd.Context(), secret)
			if err != nil {
				return err
			}

			fmt.Printf("id:         %s\n", result.ID)
			fmt.Printf("expires at: %s\n", result.ExpiresAt.Format(time.RFC3339))
			fmt.Printf("share link: %s\n", result.ShareURL)
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "server base URL")
	cmd.Flags().StringVar(&text, "text", "", "secret text")
	cmd.Flags().StringVar(&file, "file", "", "image file to share")
	cmd.Flags().StringVar(&password, "password", "", "optional password gate")
	cmd.Flags().StringVar(&expiry, "expiry", string(models.ExpiryOneHour), "expiry: five-minutes, one-hour, one-day or seven-days")
	cmd.Flags().IntVar(&views, "views", 1, "maximum number of views (1-10)")

	return cmd
}

func revealCmd() *cobra.Command {
	var (
		password string
		out      string
	)

	cmd := &cobra.Command{
		Use:   "reveal <share link>",
		Short: "Consume one view of a secret and decrypt it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shareURL := args[0]

			base, err := baseOf(shareURL)
			if err != nil {
				return err
			}

			c := client.New(base, 15*time.Second)
			revealed, err := c.Reveal(cmd.Context(), shareURL, password)
			if err != nil {
				return err
			}

			if revealed.Text != "" {
				fmt.Println(revealed.Text)
			}
			if len(revealed.Content) > 0 {
				target := out
				if target == "" {
					target = revealed.Metadata.FileName
				}
				if target == "" {
					target = "secret.bin"
				}
				if err := os.WriteFile(target, revealed.Content, 0600); err != nil {
					return fmt.Errorf("writing %s: %w", target, err)
				}
				fmt.Fprintf(os.Stderr, "wrote %s (%d bytes)\n", target, len(revealed.Content))
			}

			if revealed.Destroyed {
				fmt.Fprintln(os.Stderr, "secret destroyed: this was the last view")
			} else {
				fmt.Fprintf(os.Stderr, "views remaining: %d\n", revealed.RemainingViews)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password, if the secret is gated")
	cmd.Flags().StringVar(&out, "out", "", "where to write binary content")

	return cmd
}

func baseOf(shareURL string) (string, error) {
	u, err := url.Parse(shareURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid share link: %s", shareURL)
	}
	return u.Scheme + "://" + u.Host, nil
}
