package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"quill-go/internal/app"
	"quill-go/internal/config"
	"quill-go/internal/database"
	"quill-go/internal/model"
	"quill-go/internal/quill"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer
// app.Close(). operation identifies the CLI command being run
// (e.g. "CreateNode", "MergeBranches").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// optString returns a pointer to the flag's value when it was set on
// the command line, nil otherwise. Update commands use this to leave
// unset fields untouched.
func optString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

// ownerFromFlags resolves the --node / --content flag pair to an owner
// reference. Exactly one must be set.
func ownerFromFlags(cmd *cobra.Command) (quill.OwnerRef, error) {
	nodeID, _ := cmd.Flags().GetString("node")
	contentID, _ := cmd.Flags().GetString("content")

	switch {
	case nodeID != "" && contentID != "":
		return quill.OwnerRef{}, fmt.Errorf("--node and --content are mutually exclusive")
	case nodeID != "":
		return quill.OwnerRef{Kind: quill.OwnerNode, ID: nodeID}, nil
	case contentID != "":
		return quill.OwnerRef{Kind: quill.OwnerContent, ID: contentID}, nil
	default:
		return quill.OwnerRef{}, fmt.Errorf("one of --node or --content is required")
	}
}

// readBody reads content from the given file, or from stdin when path
// is "-" or empty.
func readBody(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "Multi-project writing manager with versioned content",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Database:   %s (%s)\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Store:      %s (%s)\n", cfg.Store.Strategy, cfg.Store.Root)
		fmt.Printf("Keep Count: %d\n", cfg.Retention.KeepCount)
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the metadata database",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bring the database schema up to date",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}

		db, err := database.NewDatabaseFromConfig(cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		if err := db.MigrateUp(); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
		fmt.Println("Database schema is up to date.")
		return nil
	},
}

// node command
var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Manage hierarchy nodes",
}

var nodeCreateCmd = &cobra.Command{
	Use:   "create TITLE",
	Short: "Create a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		description, _ := cmd.Flags().GetString("description")
		parentID := optString(cmd, "parent")

		a, err := newApp("CreateNode")
		if err != nil {
			return err
		}
		defer a.Close()

		node, err := a.Service.CreateNode(parentID, kind, args[0], description)
		if err != nil {
			return err
		}
		fmt.Printf("Created node %s (%s)\n", node.ID, node.Title)
		return nil
	},
}

var nodeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List child nodes (root nodes without --parent)",
	RunE: func(cmd *cobra.Command, args []string) error {
		parentID := optString(cmd, "parent")

		a, err := newApp("ListChildren")
		if err != nil {
			return err
		}
		defer a.Close()

		nodes, err := a.Service.ListChildren(parentID)
		if err != nil {
			return err
		}
		if len(nodes) == 0 {
			fmt.Println("No nodes found.")
			return nil
		}
		for _, n := range nodes {
			fmt.Printf("%s  %-10s  %s\n", n.ID, n.Kind, n.Title)
		}
		return nil
	},
}

var nodeTreeCmd = &cobra.Command{
	Use:   "tree NODE_ID",
	Short: "View a node's subtree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		depth, _ := cmd.Flags().GetInt("depth")

		a, err := newApp("GetSubtree")
		if err != nil {
			return err
		}
		defer a.Close()

		nodes, err := a.Service.GetSubtree(args[0], depth)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			fmt.Printf("%s%s  %s\n", strings.Repeat("  ", n.Depth), n.Title, n.ID)
		}
		return nil
	},
}

var nodeUpdateCmd = &cobra.Command{
	Use:   "update NODE_ID",
	Short: "Update a node's fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := optString(cmd, "kind")
		title := optString(cmd, "title")
		description := optString(cmd, "description")

		a, err := newApp("UpdateNode")
		if err != nil {
			return err
		}
		defer a.Close()

		node, err := a.Service.UpdateNode(args[0], kind, title, description)
		if err != nil {
			return err
		}
		fmt.Printf("Updated node %s (%s)\n", node.ID, node.Title)
		return nil
	},
}

var nodeMoveCmd = &cobra.Command{
	Use:   "move NODE_ID",
	Short: "Move a node under a new parent (root without --parent)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parentID := optString(cmd, "parent")

		a, err := newApp("MoveNode")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service.MoveNode(args[0], parentID); err != nil {
			return err
		}
		fmt.Println("Node moved.")
		return nil
	},
}

var nodeReorderCmd = &cobra.Command{
	Use:   "reorder PARENT_ID NODE_ID...",
	Short: "Reorder a node's children",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ReorderChildren")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service.ReorderChildren(args[0], args[1:]); err != nil {
			return err
		}
		fmt.Println("Children reordered.")
		return nil
	},
}

var nodeDeleteCmd = &cobra.Command{
	Use:   "delete NODE_ID",
	Short: "Delete a node and its entire subtree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeleteNode")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Service.DeleteNode(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d node(s) and %d content(s)\n",
			len(result.DeletedNodeIDs), len(result.DeletedContentIDs))
		for _, w := range result.CleanupWarnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		return nil
	},
}

var nodeAttachCmd = &cobra.Command{
	Use:   "attach NODE_ID",
	Short: "Attach a version store to a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("AttachNodeStore")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service.AttachNodeStore(args[0]); err != nil {
			return err
		}
		fmt.Println("Store attached.")
		return nil
	},
}

var nodeDetachCmd = &cobra.Command{
	Use:   "detach NODE_ID",
	Short: "Detach and remove a node's version store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DetachNodeStore")
		if err != nil {
			return err
		}
		defer a.Close()

		warnings, err := a.Service.DetachNodeStore(args[0])
		if err != nil {
			return err
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		fmt.Println("Store detached.")
		return nil
	},
}

// content command
var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Manage contents",
}

var contentCreateCmd = &cobra.Command{
	Use:   "create TITLE",
	Short: "Create a content under a node or standalone in a scope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		bodyFile, _ := cmd.Flags().GetString("body-file")
		nodeID := optString(cmd, "node")
		scopeID := optString(cmd, "scope")

		var body string
		if cmd.Flags().Changed("body-file") {
			var err error
			body, err = readBody(bodyFile)
			if err != nil {
				return err
			}
		}

		a, err := newApp("CreateContent")
		if err != nil {
			return err
		}
		defer a.Close()

		content, err := a.Service.CreateContent(nodeID, scopeID, args[0], description, body)
		if err != nil {
			return err
		}
		fmt.Printf("Created content %s (%s)\n", content.ID, content.Title)
		return nil
	},
}

var contentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List contents of a node or standalone contents of a scope",
	RunE: func(cmd *cobra.Command, args []string) error {
		nodeID, _ := cmd.Flags().GetString("node")
		scopeID, _ := cmd.Flags().GetString("scope")
		if (nodeID == "") == (scopeID == "") {
			return fmt.Errorf("one of --node or --scope is required")
		}

		a, err := newApp("ListContents")
		if err != nil {
			return err
		}
		defer a.Close()

		var contents []*model.Content
		if nodeID != "" {
			contents, err = a.Service.ListContentsByNode(nodeID)
		} else {
			contents, err = a.Service.ListStandaloneContents(scopeID)
		}
		if err != nil {
			return err
		}
		if len(contents) == 0 {
			fmt.Println("No contents found.")
			return nil
		}
		for _, c := range contents {
			fmt.Printf("%s  %s\n", c.ID, c.Title)
		}
		return nil
	},
}

var contentShowCmd = &cobra.Command{
	Use:   "show CONTENT_ID",
	Short: "Print a content's current body",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ReadContent")
		if err != nil {
			return err
		}
		defer a.Close()

		body, err := a.Service.ReadContent(args[0])
		if err != nil {
			return err
		}
		fmt.Print(body)
		return nil
	},
}

var contentSaveCmd = &cobra.Command{
	Use:   "save CONTENT_ID [FILE]",
	Short: "Save a content's body (from FILE or stdin)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) > 1 {
			path = args[1]
		}
		body, err := readBody(path)
		if err != nil {
			return err
		}

		a, err := newApp("SaveContent")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service.SaveContent(args[0], body); err != nil {
			return err
		}
		fmt.Println("Content saved.")
		return nil
	},
}

var contentUpdateCmd = &cobra.Command{
	Use:   "update CONTENT_ID",
	Short: "Update a content's fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := optString(cmd, "title")
		description := optString(cmd, "description")

		a, err := newApp("UpdateContent")
		if err != nil {
			return err
		}
		defer a.Close()

		content, err := a.Service.UpdateContent(args[0], title, description)
		if err != nil {
			return err
		}
		fmt.Printf("Updated content %s (%s)\n", content.ID, content.Title)
		return nil
	},
}

var contentReorderCmd = &cobra.Command{
	Use:   "reorder CONTENT_ID...",
	Short: "Reorder a node's or scope's contents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nodeID := optString(cmd, "node")
		scopeID := optString(cmd, "scope")

		a, err := newApp("ReorderContents")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service.ReorderContents(nodeID, scopeID, args); err != nil {
			return err
		}
		fmt.Println("Contents reordered.")
		return nil
	},
}

var contentDeleteCmd = &cobra.Command{
	Use:   "delete CONTENT_ID",
	Short: "Delete a content and its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeleteContent")
		if err != nil {
			return err
		}
		defer a.Close()

		warnings, err := a.Service.DeleteContent(args[0])
		if err != nil {
			return err
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		fmt.Println("Content deleted.")
		return nil
	},
}

// version command (linear strategy)
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Manage named versions of a content",
}

var versionCreateCmd = &cobra.Command{
	Use:   "create CONTENT_ID NAME",
	Short: "Create a named version and make it active",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bodyFile, _ := cmd.Flags().GetString("body-file")

		var body string
		if cmd.Flags().Changed("body-file") {
			var err error
			body, err = readBody(bodyFile)
			if err != nil {
				return err
			}
		}

		a, err := newApp("CreateVersion")
		if err != nil {
			return err
		}
		defer a.Close()

		version, err := a.Service.CreateVersion(args[0], args[1], body)
		if err != nil {
			return err
		}
		fmt.Printf("Created version %s (%s)\n", version.ID, version.Name)
		return nil
	},
}

var versionListCmd = &cobra.Command{
	Use:   "list CONTENT_ID",
	Short: "List a content's versions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListVersions")
		if err != nil {
			return err
		}
		defer a.Close()

		versions, err := a.Service.ListVersions(args[0])
		if err != nil {
			return err
		}
		content, err := a.Service.GetContent(args[0])
		if err != nil {
			return err
		}
		for _, v := range versions {
			active := ""
			if content.ActiveVersionID != nil && *content.ActiveVersionID == v.ID {
				active = "  [active]"
			}
			fmt.Printf("%s  %s%s\n", v.ID, v.Name, active)
		}
		return nil
	},
}

var versionSwitchCmd = &cobra.Command{
	Use:   "switch VERSION_ID",
	Short: "Make a version active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SwitchVersion")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service.SwitchVersion(args[0]); err != nil {
			return err
		}
		fmt.Println("Version switched.")
		return nil
	},
}

var versionRenameCmd = &cobra.Command{
	Use:   "rename VERSION_ID NAME",
	Short: "Rename a version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RenameVersion")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service.RenameVersion(args[0], args[1]); err != nil {
			return err
		}
		fmt.Println("Version renamed.")
		return nil
	},
}

var versionDeleteCmd = &cobra.Command{
	Use:   "delete VERSION_ID",
	Short: "Delete a version and its snapshots",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeleteVersion")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service.DeleteVersion(args[0]); err != nil {
			return err
		}
		fmt.Println("Version deleted.")
		return nil
	},
}

// snapshot command (linear strategy)
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage snapshots of a version",
}

var snapshotCreateCmd = &cobra.Command{
	Use:   "create VERSION_ID [FILE]",
	Short: "Append a snapshot (from FILE or stdin) and make it active",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) > 1 {
			path = args[1]
		}
		body, err := readBody(path)
		if err != nil {
			return err
		}

		a, err := newApp("CreateSnapshot")
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.Service.CreateSnapshot(args[0], body)
		if err != nil {
			return err
		}
		fmt.Printf("Created snapshot %s\n", snap.ID)
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list VERSION_ID",
	Short: "List a version's snapshots, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListSnapshots")
		if err != nil {
			return err
		}
		defer a.Close()

		snapshots, err := a.Service.ListSnapshots(args[0])
		if err != nil {
			return err
		}
		for _, s := range snapshots {
			fmt.Printf("%s  %s  %d bytes\n",
				s.ID, s.CreatedAt.Format("2006-01-02 15:04:05"), len(s.Body))
		}
		return nil
	},
}

var snapshotSwitchCmd = &cobra.Command{
	Use:   "switch SNAPSHOT_ID",
	Short: "Make a snapshot active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SwitchSnapshot")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service.SwitchSnapshot(args[0]); err != nil {
			return err
		}
		fmt.Println("Snapshot switched.")
		return nil
	},
}

// branch command (branching strategy)
var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Manage branches of a node or content store",
}

var branchCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a branch off the active one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := ownerFromFlags(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("CreateBranch")
		if err != nil {
			return err
		}
		defer a.Close()

		slug, err := a.Service.CreateBranch(owner, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Created branch %s (%s)\n", slug, args[0])
		return nil
	},
}

var branchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List branches",
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := ownerFromFlags(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("ListBranches")
		if err != nil {
			return err
		}
		defer a.Close()

		branches, err := a.Service.ListBranches(owner)
		if err != nil {
			return err
		}
		for _, b := range branches {
			fmt.Printf("%s  %s\n", b.Slug, b.DisplayName)
		}
		return nil
	},
}

var branchSwitchCmd = &cobra.Command{
	Use:   "switch SLUG",
	Short: "Switch the active branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := ownerFromFlags(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("SwitchBranch")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service.SwitchBranch(owner, args[0]); err != nil {
			return err
		}
		fmt.Println("Branch switched.")
		return nil
	},
}

var branchRenameCmd = &cobra.Command{
	Use:   "rename SLUG NAME",
	Short: "Rename a branch's display name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := ownerFromFlags(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("RenameBranch")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service.RenameBranch(owner, args[0], args[1]); err != nil {
			return err
		}
		fmt.Println("Branch renamed.")
		return nil
	},
}

var branchDeleteCmd = &cobra.Command{
	Use:   "delete SLUG",
	Short: "Delete a branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := ownerFromFlags(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("DeleteBranch")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service.DeleteBranch(owner, args[0]); err != nil {
			return err
		}
		fmt.Println("Branch deleted.")
		return nil
	},
}

var branchMergeCmd = &cobra.Command{
	Use:   "merge FROM INTO",
	Short: "Merge one branch into another",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := ownerFromFlags(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("MergeBranches")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Service.MergeBranches(owner, args[0], args[1])
		if err != nil {
			return err
		}
		if !result.Merged() {
			fmt.Println("Merge blocked by conflicts:")
			for _, path := range result.Conflicts {
				fmt.Printf("  %s\n", path)
			}
			return nil
		}
		fmt.Printf("Merged %s into %s (%s)\n", args[0], args[1], result.CommitID[:8])
		return nil
	},
}

var branchDiffCmd = &cobra.Command{
	Use:   "diff A B",
	Short: "Compare two branches or commits",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := ownerFromFlags(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("DiffBranches")
		if err != nil {
			return err
		}
		defer a.Close()

		diff, err := a.Service.DiffBranches(owner, args[0], args[1])
		if err != nil {
			return err
		}
		for _, group := range [][]quill.FileDiff{diff.Added, diff.Modified, diff.Deleted} {
			for _, fd := range group {
				fmt.Printf("%s %s\n%s", fd.Kind, fd.Path, fd.Patch)
			}
		}
		return nil
	},
}

var branchLogCmd = &cobra.Command{
	Use:   "log BRANCH",
	Short: "View a branch's commit history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := ownerFromFlags(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("BranchHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		revisions, err := a.Service.BranchHistory(owner, args[0])
		if err != nil {
			return err
		}
		for _, r := range revisions {
			fmt.Printf("%s  %s  %s\n",
				r.ID[:8], r.CreatedAt.Format("2006-01-02 15:04:05"), r.Message)
		}
		return nil
	},
}

var branchRestoreCmd = &cobra.Command{
	Use:   "restore COMMIT_ID",
	Short: "Restore a historical commit onto the active branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := ownerFromFlags(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("RestoreCommit")
		if err != nil {
			return err
		}
		defer a.Close()

		commitID, err := a.Service.RestoreCommit(owner, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Restored as %s\n", commitID[:8])
		return nil
	},
}

var branchCommitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Commit all pending changes in the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")
		owner, err := ownerFromFlags(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("CommitContent")
		if err != nil {
			return err
		}
		defer a.Close()

		commitID, err := a.Service.CommitContent(owner, message)
		if err != nil {
			return err
		}
		fmt.Printf("Committed %s\n", commitID[:8])
		return nil
	},
}

// prune command
var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Evict snapshots beyond the retention limit",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Prune")
		if err != nil {
			return err
		}
		defer a.Close()

		evicted, err := a.Service.Prune()
		if err != nil {
			return err
		}
		fmt.Printf("Evicted %d snapshot(s)\n", evicted)
		return nil
	},
}

func addOwnerFlags(cmd *cobra.Command) {
	cmd.Flags().String("node", "", "Owning node ID")
	cmd.Flags().String("content", "", "Owning content ID")
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// db subcommands
	dbCmd.AddCommand(dbMigrateCmd)

	// node subcommands
	nodeCreateCmd.Flags().String("parent", "", "Parent node ID (root when omitted)")
	nodeCreateCmd.Flags().String("kind", "folder", "Node kind (e.g. project, folder, chapter)")
	nodeCreateCmd.Flags().String("description", "", "Node description")
	nodeListCmd.Flags().String("parent", "", "Parent node ID (root nodes when omitted)")
	nodeTreeCmd.Flags().Int("depth", -1, "Maximum depth to descend (-1 for unbounded)")
	nodeUpdateCmd.Flags().String("kind", "", "New kind")
	nodeUpdateCmd.Flags().String("title", "", "New title")
	nodeUpdateCmd.Flags().String("description", "", "New description")
	nodeMoveCmd.Flags().String("parent", "", "New parent node ID (root when omitted)")
	nodeCmd.AddCommand(nodeCreateCmd, nodeListCmd, nodeTreeCmd, nodeUpdateCmd,
		nodeMoveCmd, nodeReorderCmd, nodeDeleteCmd, nodeAttachCmd, nodeDetachCmd)

	// content subcommands
	contentCreateCmd.Flags().String("node", "", "Owning node ID")
	contentCreateCmd.Flags().String("scope", "", "Scope ID for a standalone content")
	contentCreateCmd.Flags().String("description", "", "Content description")
	contentCreateCmd.Flags().String("body-file", "", "Initial body file (- for stdin)")
	contentListCmd.Flags().String("node", "", "Owning node ID")
	contentListCmd.Flags().String("scope", "", "Scope ID for standalone contents")
	contentUpdateCmd.Flags().String("title", "", "New title")
	contentUpdateCmd.Flags().String("description", "", "New description")
	contentReorderCmd.Flags().String("node", "", "Owning node ID")
	contentReorderCmd.Flags().String("scope", "", "Scope ID for standalone contents")
	contentCmd.AddCommand(contentCreateCmd, contentListCmd, contentShowCmd,
		contentSaveCmd, contentUpdateCmd, contentReorderCmd, contentDeleteCmd)

	// version subcommands
	versionCreateCmd.Flags().String("body-file", "", "Initial body file (- for stdin)")
	versionCmd.AddCommand(versionCreateCmd, versionListCmd, versionSwitchCmd,
		versionRenameCmd, versionDeleteCmd)

	// snapshot subcommands
	snapshotCmd.AddCommand(snapshotCreateCmd, snapshotListCmd, snapshotSwitchCmd)

	// branch subcommands
	branchCommitCmd.Flags().StringP("message", "m", "Checkpoint", "Commit message")
	for _, c := range []*cobra.Command{branchCreateCmd, branchListCmd, branchSwitchCmd,
		branchRenameCmd, branchDeleteCmd, branchMergeCmd, branchDiffCmd,
		branchLogCmd, branchRestoreCmd, branchCommitCmd} {
		addOwnerFlags(c)
		branchCmd.AddCommand(c)
	}

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(contentCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(branchCmd)
	rootCmd.AddCommand(pruneCmd)
}
