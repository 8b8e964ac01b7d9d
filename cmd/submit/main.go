package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"contact-lab/client"
	"contact-lab/domain"
	"contact-lab/errors"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
)

const (
	exitOK         = 0
	exitRuntime    = 1
	exitValidation = 2
)

func main() {
	address := flag.String("addr", "localhost:8080", "contact server gRPC address")
	name := flag.String("name", "", "full name")
	email := flag.String("email", "", "email address")
	phone := flag.String("phone", "", "10-digit phone number")
	message := flag.String("message", "", "optional message")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	flag.Parse()

	os.Exit(run(*address, *timeout, domain.ContactPayload{
		Name:    *name,
		Email:   *email,
		Phone:   *phone,
		Message: *message,
	}))
}

func run(address string, timeout time.Duration, payload domain.ContactPayload) int {
	log := logs.GetLoggerFromString("WARN")
	c, err := client.Dial(address, log)
	if err != nil {
		color.Red.Println(err)
		return exitRuntime
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Invalid payloads are rejected locally, before any round trip
	contact, err := c.CreateContact(ctx, payload)
	var validationErr *errors.ValidationError
	switch {
	case err == nil:
		color.Green.Printf("Contact created successfully: %s <%s> (%s)\n", contact.Name, contact.Email, contact.ID)
		return exitOK
	case errors.As(err, &validationErr):
		color.Yellow.Println("Validation failed:")
		for _, field := range validationErr.FieldNames() {
			fmt.Printf("  - %s: %s\n", field, validationErr.Fields[field])
		}
		return exitValidation
	case errors.Is(err, errors.ErrDuplicateEmail):
		color.Yellow.Println("A contact with this email already exists")
		return exitValidation
	case errors.Is(err, errors.ErrNetworkUnavailable):
		color.Red.Println("Network error. Please check your connection.")
		return exitRuntime
	default:
		color.Red.Printf("Failed to create contact: %v\n", err)
		return exitRuntime
	}
}
