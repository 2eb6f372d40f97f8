// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var errPasswordMismatch = errors.New("les mots de passe ne correspondent pas")

func newSetPasswordCommand(services func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-password",
		Short: "Replace the library password and lift any lock",
		Long: "Prompts twice for the new password with echo disabled. When stdin is not a\n" +
			"terminal, the first line of stdin is used instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := promptNewPassword(cmd)
			if err != nil {
				return err
			}

			if err := services().authService.SetPassword(cmd.Context(), password); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Mot de passe mis à jour.")
			return nil
		},
	}
}

func newUnlockCommand(services func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Clear the lock and the failed login attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := services().authService.Unlock(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Compte déverrouillé.")
			return nil
		},
	}
}

func newSecurityCommand(services func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "security",
		Short: "Print the lock state and recent failed attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := services().authService.SecurityInfo(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if info.IsLocked {
				fmt.Fprintf(out, "Verrouillé: oui (%d min restantes)\n", info.RemainingLockMinutes)
			} else {
				fmt.Fprintln(out, "Verrouillé: non")
			}
			fmt.Fprintf(out, "Tentatives récentes: %d\n", info.RecentAttempts)
			if info.LastSuccessfulLogin != nil {
				fmt.Fprintf(out, "Dernière connexion: %s\n", info.LastSuccessfulLogin.Local().Format("2006-01-02 15:04:05"))
			} else {
				fmt.Fprintln(out, "Dernière connexion: jamais")
			}
			return nil
		},
	}
}

// promptNewPassword reads the password masked from a terminal, or from the first stdin line.
func promptNewPassword(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()

	file, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return readLine(in)
	}

	out := cmd.ErrOrStderr()
	first, err := readMasked(out, file, "Nouveau mot de passe: ")
	if err != nil {
		return "", err
	}
	second, err := readMasked(out, file, "Confirmez le mot de passe: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errPasswordMismatch
	}
	return first, nil
}

func readMasked(out io.Writer, file *os.File, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	password, err := term.ReadPassword(int(file.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("lecture du mot de passe impossible: %w", err)
	}
	return strings.TrimSpace(string(password)), nil
}

func readLine(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("lecture du mot de passe impossible: %w", err)
	}
	return strings.TrimSpace(line), nil
}
