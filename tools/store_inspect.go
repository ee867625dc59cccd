package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"treasure-hunt/contract"
	"treasure-hunt/domain"
	"treasure-hunt/infrastructure/storage"

	"github.com/olekukonko/tablewriter"
)

// Dumps the stored identity links and chat log without touching them.
func main() {
	backendKind := flag.String("backend", storage.BackendBadger, "Store backend: badger or file")
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	dataDir := flag.String("data", "./data", "Directory of the JSON documents")
	what := flag.String("show", "all", "What to print: links, messages or all")
	flag.Parse()

	backend, err := openReadOnly(*backendKind, *dbPath, *dataDir)
	if err != nil {
		log.Fatal("Error while opening store: ", err)
	}
	defer backend.Close()

	dataset, err := backend.Load()
	if err != nil {
		log.Fatal("Error while loading store: ", err)
	}

	if *what == "all" || *what == "links" {
		printLinks(dataset.Links)
	}
	if *what == "all" || *what == "messages" {
		printMessages(dataset.Messages)
	}
}

func openReadOnly(kind, dbPath, dataDir string) (contract.StoreBackend, error) {
	quiet := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	if kind != storage.BackendBadger {
		return storage.Open(kind, dbPath, dataDir, quiet)
	}
	db, err := storage.OpenBadger(dbPath, true)
	if err != nil {
		return nil, err
	}
	return storage.NewBadgerBackend(db, quiet), nil
}

func newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
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
	return table
}

func printLinks(links domain.Links) {
	table := newTable("Address", "Identity")
	for _, link := range links.AsList() {
		table.Append([]string{link.Address, link.Identity})
	}
	fmt.Printf("\n%d identity links\n", len(links))
	table.Render()
}

func printMessages(messages []domain.ChatMessage) {
	table := newTable("ID", "Timestamp", "User", "Text")
	for _, m := range messages {
		text := m.Text
		if runes := []rune(text); len(runes) > 60 {
			text = string(runes[:57]) + "..."
		}
		table.Append([]string{m.ID, m.Timestamp, m.User, text})
	}
	fmt.Printf("\n%d chat messages\n", len(messages))
	table.Render()
}
