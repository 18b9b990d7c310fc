package cli

import (
	"context"
	"os"
)

func (a *App) Login(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		printlnFn("error:", err)
		return err
	}

	password, err := GetPassword(os.Stdout)
	if err != nil {
		printlnFn("error:", err)
		return err
	}

	if err := a.authService.Login(ctx, username, password); err != nil {
		printlnFn("Login unsuccessful:", err)
		return err
	}

	printlnFn("Login successful")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		printlnFn("error:", err)
		return err
	}
	printlnFn("Logged out")
	return nil
}
