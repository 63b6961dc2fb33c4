// Package mcp exposes the map engine as MCP tools over stdio.
package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"hexmap/internal/domain"
	"hexmap/internal/engine"
	"hexmap/internal/navigation"
)

// RegisterReadTools adds all read-only map tools to the MCP server.
func RegisterReadTools(s *server.MCPServer, eng *engine.Engine) {
	s.AddTool(navigateTool(), navigateHandler(eng))
	s.AddTool(showTool(), showHandler(eng))
	s.AddTool(regionTool(), regionHandler(eng))
	s.AddTool(ancestorsTool(), ancestorsHandler(eng))
	s.AddTool(statusTool(), statusHandler(eng))
}

// --- navigate ---

func navigateTool() mcp.Tool {
	return mcp.NewTool("navigate",
		mcp.WithDescription("Navigate the map to a tile. Accepts a coordinate id (e.g. 1,0:2,3) or a database id."),
		mcp.WithString("target",
			mcp.Description("Coordinate id or database id to center on"),
			mcp.Required(),
		),
		mcp.WithBoolean("replace",
			mcp.Description("Replace the current history entry instead of pushing"),
		),
	)
}

func navigateHandler(eng *engine.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		target := req.GetString("target", "")
		if target == "" {
			return toolError(fmt.Errorf("target is required"))
		}

		result := eng.Navigator.NavigateToItem(ctx, navigation.Request{
			Target:         target,
			ReplaceHistory: req.GetBool("replace", false),
		})
		if result.Err != nil {
			return toolError(result.Err)
		}

		center := eng.Store.CurrentCenter()
		var sb strings.Builder
		fmt.Fprintf(&sb, "Centered on %s\n", center)
		if url := eng.History.Current(); url != "" {
			fmt.Fprintf(&sb, "URL: %s\n", url)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- show ---

func showTool() mcp.Tool {
	return mcp.NewTool("show",
		mcp.WithDescription("Show the cached tile at a coordinate, including its content."),
		mcp.WithString("coord_id",
			mcp.Description("Coordinate id (e.g. 1,0:2,3)"),
			mcp.Required(),
		),
	)
}

func showHandler(eng *engine.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		coordID := req.GetString("coord_id", "")
		if coordID == "" {
			return toolError(fmt.Errorf("coord_id is required"))
		}

		item, ok := eng.Store.Item(coordID)
		if !ok {
			if err := eng.Loader.LoadItemChildren(ctx, coordID); err != nil {
				return toolError(err)
			}
			item, ok = eng.Store.Item(coordID)
			if !ok {
				return toolError(domain.ErrNotFound.New("no item at %s", coordID))
			}
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "%s  %s\n", item.Metadata.CoordID, item.Data.Title)
		fmt.Fprintf(&sb, "id: %s  depth: %d  owner: %s\n", item.Metadata.DBID, item.Metadata.Depth, item.Metadata.OwnerID)
		if item.Data.Link != "" {
			fmt.Fprintf(&sb, "link: %s\n", item.Data.Link)
		}
		if item.Data.Content != "" {
			sb.WriteByte('\n')
			sb.WriteString(item.Data.Content)
			sb.WriteByte('\n')
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- region ---

func regionTool() mcp.Tool {
	return mcp.NewTool("region",
		mcp.WithDescription("List the tiles within a region around a center coordinate, loading it if needed."),
		mcp.WithString("center",
			mcp.Description("Center coordinate id. Omit to use the current center."),
		),
		mcp.WithNumber("depth",
			mcp.Description("Region depth in generations. Omit to use the configured default."),
		),
	)
}

func regionHandler(eng *engine.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		center := req.GetString("center", "")
		if center == "" {
			center = eng.Store.CurrentCenter()
		}
		if center == "" {
			return toolError(fmt.Errorf("no center set; pass one or navigate first"))
		}
		depth := req.GetInt("depth", eng.Store.Config().MaxDepth)

		if err := eng.Loader.LoadRegion(ctx, center, depth); err != nil {
			return toolError(err)
		}
		items, err := eng.Store.ItemsWithinRegion(center, depth)
		if err != nil {
			return toolError(err)
		}
		if len(items) == 0 {
			return mcp.NewToolResultText("No tiles in region."), nil
		}

		sort.Slice(items, func(i, j int) bool {
			return items[i].Metadata.CoordID < items[j].Metadata.CoordID
		})
		var sb strings.Builder
		for _, item := range items {
			sb.WriteString(formatItemLine(item))
			sb.WriteByte('\n')
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- ancestors ---

func ancestorsTool() mcp.Tool {
	return mcp.NewTool("ancestors",
		mcp.WithDescription("List the ancestor chain of a coordinate from its parent up to the map root."),
		mcp.WithString("coord_id",
			mcp.Description("Coordinate id"),
			mcp.Required(),
		),
	)
}

func ancestorsHandler(eng *engine.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		coordID := req.GetString("coord_id", "")
		if coordID == "" {
			return toolError(fmt.Errorf("coord_id is required"))
		}
		if _, err := domain.ParseID(coordID); err != nil {
			return toolError(err)
		}

		wire, err := eng.Server.GetAncestors(ctx, coordID)
		if err != nil {
			return toolError(err)
		}
		items, err := domain.ItemsFromServer(wire)
		if err != nil {
			return toolError(err)
		}
		if len(items) == 0 {
			return mcp.NewToolResultText("No ancestors; this is a root."), nil
		}

		var sb strings.Builder
		for _, item := range items {
			sb.WriteString(formatItemLine(item))
			sb.WriteByte('\n')
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- status ---

func statusTool() mcp.Tool {
	return mcp.NewTool("status",
		mcp.WithDescription("Show cache and sync status: current center, cached item count, loaded regions, sync counters."),
	)
}

func statusHandler(eng *engine.Engine) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status := eng.Syncer.Status()

		var sb strings.Builder
		fmt.Fprintf(&sb, "center: %s\n", eng.Store.CurrentCenter())
		fmt.Fprintf(&sb, "cached items: %d\n", eng.Store.ItemCount())
		fmt.Fprintf(&sb, "loaded regions: %d\n", len(eng.Store.Regions()))
		fmt.Fprintf(&sb, "syncing: %v  syncs: %d  errors: %d\n", status.IsSyncing, status.SyncCount, status.ErrorCount)
		if !status.LastSyncAt.IsZero() {
			fmt.Fprintf(&sb, "last sync: %s\n", status.LastSyncAt.Format("15:04:05"))
		}
		if status.LastError != "" {
			fmt.Fprintf(&sb, "last error: %s\n", status.LastError)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- helpers ---

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

func formatItemLine(item domain.Item) string {
	title := item.Data.Title
	if title == "" {
		title = "(untitled)"
	}
	return fmt.Sprintf("%s  %s", item.Metadata.CoordID, title)
}
