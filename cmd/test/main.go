// Manual smoke test for the API client and column derivation, without the
// TUI. Authenticates via GITHUB_TOKEN or the device flow, then prints the
// first project's board.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"ghswipe/internal/auth"
	"ghswipe/internal/board"
	"ghswipe/internal/gh"
)

func main() {
	ctx := context.Background()

	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		var err error
		token, err = login(ctx)
		if err != nil {
			log.Fatal(err)
		}
	}

	client := gh.New(token)

	user, err := client.GetCurrentUser(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Signed in as %s\n\n", user.Login)

	owner := user.Login
	if len(os.Args) > 1 {
		owner = os.Args[1]
	}

	projects, err := client.GetProjects(ctx, owner)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Projects (%d):\n", len(projects))
	for _, p := range projects {
		fmt.Printf("  #%d: %s (%d items)\n", p.Number, p.Title, len(p.Items))
	}

	if len(projects) == 0 {
		return
	}

	project := projects[0]
	fmt.Printf("\nBoard for #%d %s:\n", project.Number, project.Title)

	if field := board.FindStatusField(project.Fields); field != nil {
		fmt.Printf("Status field: %s (%d options)\n", field.Name, len(field.Options))
	} else {
		fmt.Println("No status field; using the fallback column.")
	}

	for _, col := range board.DeriveColumns(&project) {
		fmt.Printf("\n  [%s] %d items\n", col.Name, len(col.Items))
		for _, item := range col.Items {
			fmt.Printf("    - %s\n", item.Title())
		}
	}
}

// login runs the OAuth device flow on the terminal.
func login(ctx context.Context) (string, error) {
	flow := auth.NewFlow()

	authz, err := flow.RequestDeviceCode(ctx)
	if err != nil {
		return "", err
	}

	fmt.Printf("Enter code %s at %s\n", authz.UserCode, authz.VerificationURI)
	fmt.Println("Waiting for authorization...")

	return flow.PollForAccessToken(ctx, authz.DeviceCode,
		time.Duration(authz.Interval)*time.Second,
		func() { fmt.Print(".") })
}
