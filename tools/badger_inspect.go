package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

// storedContact mirrors the value written under "contact:" keys.
type storedContact struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
	At      int64  `json:"at"`
}

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	// "contact:" by default; "idx:email:" lists the uniqueness index
	prefix := flag.String("prefix", "contact:", "Prefix to scan")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	indexScan := strings.HasPrefix(*prefix, "idx:")
	if indexScan {
		table.SetHeader([]string{"Key", "Contact ID"})
	} else {
		table.SetHeader([]string{"Key", "Created", "Name", "Email", "Phone", "Message"})
	}

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			rawKey := string(item.Key())
			err := item.Value(func(v []byte) error {
				if indexScan {
					table.Append([]string{rawKey, string(v)})
					return nil
				}
				var c storedContact
				if err := json.Unmarshal(v, &c); err != nil {
					// Keep going, one bad value should not hide the others
					fmt.Printf("Error unmarshaling key %s: %v\n", rawKey, err)
					return nil
				}
				table.Append([]string{
					rawKey,
					time.Unix(0, c.At).UTC().Format(time.RFC3339Nano),
					c.Name,
					c.Email,
					c.Phone,
					c.Message,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}
