package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contact-lab/client"
	"contact-lab/domain"
	"contact-lab/projection"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the viewer-side environment variables.
type Config struct {
	ServerAddress string        `env:"CONTACT_SERVER_ADDR,default=localhost:8080"`
	LogLevel      string        `env:"LOG_LEVEL,default=WARN"`
	StatusRefresh time.Duration `env:"VIEWER_STATUS_REFRESH,default=1s"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Viewer error: %v\n", err)
	}
	os.Exit(code)
}

// run mounts a live contact list and redraws it on every change until Ctrl+C.
func run() (int, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.Dial(config.ServerAddress, log)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = c.Close() }()

	render(nil, config.ServerAddress)
	viewer := client.Mount(ctx, c, log)
	defer viewer.Close()

	ticker := time.NewTicker(config.StatusRefresh)
	defer ticker.Stop()
	for {
		render(viewer, config.ServerAddress)
		select {
		case <-ctx.Done():
			return exitOK, nil
		case <-viewer.View().Changes():
		case <-ticker.C:
		}
	}
}

func render(viewer *client.Viewer, address string) {
	// clear screen, cursor home
	fmt.Print("\033[H\033[2J")
	fmt.Println(color.New(color.BgBlack, color.FgGreen).Render(fmt.Sprintf("  ====== Contacts @ %s ======  ", address)))

	if viewer == nil || viewer.View().State() == projection.Loading {
		fmt.Println(color.Yellow.Sprint("○ Loading contacts..."))
		return
	}
	if viewer.Live() {
		fmt.Println(color.Green.Sprint("● Live updates active"))
	} else {
		fmt.Println(color.Yellow.Sprintf("○ Connecting... (%v)", viewer.StreamErr()))
	}
	if err := viewer.View().Err(); err != nil {
		fmt.Println(color.Red.Sprintf("Failed to fetch contacts: %v", err))
	}

	contacts := viewer.View().Contacts()
	fmt.Printf("Total: %d\n\n", len(contacts))
	if len(contacts) == 0 {
		fmt.Println("No contacts yet. Submit one to see it appear here.")
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Name", "Email", "Phone", "Message", "Created"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, contact := range contacts {
		table.Append(row(contact))
	}
	table.Render()
}

func row(contact domain.Contact) []string {
	message := contact.Message
	if len([]rune(message)) > 40 {
		message = string([]rune(message)[:40]) + "…"
	}
	return []string{
		contact.Name,
		contact.Email,
		contact.Phone,
		message,
		contact.CreatedAt.Local().Format("2006-01-02 15:04:05"),
	}
}
