package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/tendant/simple-ar/pkg/arcontent"
	"github.com/tendant/simple-ar/pkg/arcontent/config"
)

const usage = `Simple AR Admin CLI

An admin tool for AR projects and resources. It uses the same configuration
as the server, so it talks to the same database and blob store.

USAGE:
  admin <command> [options]

COMMANDS:
  projects         List projects
  project          Show one project and its resource ids
  create-project   Create a project
  rename-project   Rename a project
  delete-project   Delete a project (its resources are detached, not deleted)
  resource         Show one resource (counts as an access)
  delete-resource  Delete a resource row
  storage          Show blob store usage

ENVIRONMENT VARIABLES:
  DATABASE_TYPE     memory, postgres or sqlite (default: memory)
  DATABASE_URL      PostgreSQL connection string
  SQLITE_PATH       SQLite database file
  STORAGE_TYPE      memory, fs, s3 or minio (default: memory)

  Configuration can be loaded from a .env file in the current directory.

EXAMPLES:
  admin projects --page=0 --size=50
  admin project --id=12
  admin create-project --name=gallery
  admin rename-project --id=12 --name=gallery-2
  admin resource --id=7 --json
  admin storage

OPTIONS:
  --id=<id>        Entity id
  --name=<name>    Name, letters, digits, '-', '_' and '.' only
  --page=<n>       Page number (projects only, default: 0)
  --size=<n>       Page size (projects only, default: 20)
  --json           Output as JSON
`

type options struct {
	id      string
	name    string
	page    int
	size    int
	useJSON bool
}

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Print(usage, "\n")
		os.Exit(1)
	}

	command := os.Args[1]

	if command == "help" || command == "--help" || command == "-h" {
		fmt.Print(usage, "\n")
		os.Exit(0)
	}

	cfg, err := config.Load(config.WithEnv(), config.WithEventSink("noop"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	svc, cleanup, err := cfg.BuildService(ctx)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer cleanup()

	opts := parseOptions(os.Args[2:])

	switch command {
	case "projects":
		handleProjects(ctx, svc, opts)
	case "project":
		handleProject(ctx, svc, opts)
	case "create-project":
		id, err := svc.CreateProject(ctx, opts.name)
		if err != nil {
			log.Fatalf("Failed to create project: %v", err)
		}
		fmt.Printf("Created project %s\n", id)
	case "rename-project":
		if err := svc.RenameProject(ctx, opts.id, opts.name); err != nil {
			log.Fatalf("Failed to rename project: %v", err)
		}
		fmt.Printf("Renamed project %s\n", opts.id)
	case "delete-project":
		if err := svc.DeleteProject(ctx, opts.id); err != nil {
			log.Fatalf("Failed to delete project: %v", err)
		}
		fmt.Printf("Deleted project %s\n", opts.id)
	case "resource":
		handleResource(ctx, svc, opts)
	case "delete-resource":
		if err := svc.DeleteResource(ctx, opts.id); err != nil {
			log.Fatalf("Failed to delete resource: %v", err)
		}
		fmt.Printf("Deleted resource %s\n", opts.id)
	case "storage":
		handleStorage(ctx, svc, opts)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage, "\n")
		os.Exit(1)
	}
}

func parseOptions(args []string) options {
	opts := options{size: 20}

	for _, arg := range args {
		if arg == "--json" {
			opts.useJSON = true
			continue
		}

		key, value := parseFlag(arg)

		switch key {
		case "id":
			opts.id = value
		case "name":
			opts.name = value
		case "page":
			if n, err := strconv.Atoi(value); err == nil {
				opts.page = n
			}
		case "size":
			if n, err := strconv.Atoi(value); err == nil {
				opts.size = n
			}
		}
	}

	return opts
}

func parseFlag(arg string) (string, string) {
	if len(arg) > 2 && arg[:2] == "--" {
		arg = arg[2:]
		for i, c := range arg {
			if c == '=' {
				return arg[:i], arg[i+1:]
			}
		}
		return arg, "true"
	}
	return "", ""
}

func printJSON(v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

func handleProjects(ctx context.Context, svc arcontent.Service, opts options) {
	page, err := svc.ListProjects(ctx, opts.page, opts.size)
	if err != nil {
		log.Fatalf("Failed to list projects: %v", err)
	}

	if opts.useJSON {
		printJSON(page)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tRESOURCES\tCREATED\n")
	for _, p := range page.Items {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			p.ID,
			truncate(p.Name, 30),
			len(p.ResourceIDs),
			p.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()

	fmt.Printf("\nPage %d, %d of %d projects", page.Page, len(page.Items), page.Total)
	if int64((page.Page+1)*page.Size) < page.Total {
		fmt.Printf(" (use --page=%d to continue)", page.Page+1)
	}
	fmt.Println()
}

func handleProject(ctx context.Context, svc arcontent.Service, opts options) {
	project, err := svc.GetProject(ctx, opts.id)
	if err != nil {
		log.Fatalf("Failed to get project: %v", err)
	}

	if opts.useJSON {
		printJSON(project)
		return
	}

	fmt.Printf("Project %s: %s\n", project.ID, project.Name)
	fmt.Printf("Resources: %d\n", len(project.ResourceIDs))
	for _, id := range project.ResourceIDs {
		fmt.Printf("  %s\n", id)
	}
}

func handleResource(ctx context.Context, svc arcontent.Service, opts options) {
	view, err := svc.GetResource(ctx, opts.id)
	if err != nil {
		log.Fatalf("Failed to get resource: %v", err)
	}

	if opts.useJSON {
		printJSON(view)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "FIELD\tID\tNAME\tLOCATION\n")
	fmt.Fprintf(w, "resource\t%s\t%s\tproject=%s\n", view.ID, view.Name, orDash(view.ProjectID))
	fmt.Fprintf(w, "thumbnail\t%s\t%s\t%s\n", view.Thumbnail.ID, view.Thumbnail.Name, view.Thumbnail.Locator)
	for i, loc := range view.Markers.Locators {
		fmt.Fprintf(w, "marker%d\t%s\t%s\t%s\n", i+1, view.Markers.ID, view.Markers.Name, loc)
	}
	if view.Image != nil {
		fmt.Fprintf(w, "image\t%s\t%s\t%s\n", view.Image.ID, view.Image.Name, view.Image.Locator)
	}
	if view.Sound != nil {
		fmt.Fprintf(w, "sound\t%s\t%s\t%s\n", view.Sound.ID, view.Sound.Name, view.Sound.Locator)
	}
	if view.Video != nil {
		fmt.Fprintf(w, "video\t%s\t%s\t%s\n", view.Video.ID, view.Video.Name, view.Video.URL)
	}
	w.Flush()

	fmt.Printf("\nAccess count: %d\n", view.AccessCount)
}

func handleStorage(ctx context.Context, svc arcontent.Service, opts options) {
	info, err := svc.GetStorageInfo(ctx)
	if err != nil {
		log.Fatalf("Failed to get storage info: %v", err)
	}

	if opts.useJSON {
		printJSON(info)
		return
	}

	fmt.Printf("Used:  %d bytes\n", info.UsedBytes)
	fmt.Printf("Total: %d bytes\n", info.TotalBytes)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
