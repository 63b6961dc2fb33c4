package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"hexmap/internal/domain"
	"hexmap/internal/engine"
	"hexmap/internal/mutation"
)

// RegisterWriteTools adds all mutating map tools to the MCP server.
func RegisterWriteTools(s *server.MCPServer, eng *engine.Engine) {
	s.AddTool(createTileTool(), createTileHandler(eng))
	s.AddTool(updateTileTool(), updateTileHandler(eng))
	s.AddTool(deleteTileTool(), deleteTileHandler(eng))
	s.AddTool(moveTileTool(), moveTileHandler(eng))
	s.AddTool(setVisibilityTool(), setVisibilityHandler(eng))
	s.AddTool(syncTool(), syncHandler(eng))
}

// --- create_tile ---

func createTileTool() mcp.Tool {
	return mcp.NewTool("create_tile",
		mcp.WithDescription("Create a tile at a free coordinate."),
		mcp.WithString("coord_id",
			mcp.Description("Coordinate id of the new tile (e.g. 1,0:2,3)"),
			mcp.Required(),
		),
		mcp.WithString("title",
			mcp.Description("Tile title"),
			mcp.Required(),
		),
		mcp.WithString("content",
			mcp.Description("Tile content (markdown)"),
		),
		mcp.WithString("link",
			mcp.Description("External link"),
		),
	)
}

func createTileHandler(eng *engine.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		coordID := req.GetString("coord_id", "")
		title := req.GetString("title", "")
		if coordID == "" || title == "" {
			return toolError(fmt.Errorf("coord_id and title are required"))
		}
		coord, err := domain.ParseID(coordID)
		if err != nil {
			return toolError(err)
		}

		item, err := eng.Mutator.Create(ctx, mutation.CreateRequest{
			Coord:   coord,
			Title:   title,
			Content: req.GetString("content", ""),
			Link:    req.GetString("link", ""),
		})
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Created %s (id %s)", item.Metadata.CoordID, item.Metadata.DBID)), nil
	}
}

// --- update_tile ---

func updateTileTool() mcp.Tool {
	return mcp.NewTool("update_tile",
		mcp.WithDescription("Update a tile's title, content, or link. Omitted fields are left unchanged."),
		mcp.WithString("coord_id",
			mcp.Description("Coordinate id of the tile"),
			mcp.Required(),
		),
		mcp.WithString("title",
			mcp.Description("New title"),
		),
		mcp.WithString("content",
			mcp.Description("New content"),
		),
		mcp.WithString("link",
			mcp.Description("New link"),
		),
	)
}

func updateTileHandler(eng *engine.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		coordID := req.GetString("coord_id", "")
		if coordID == "" {
			return toolError(fmt.Errorf("coord_id is required"))
		}

		var patch mutation.UpdateRequest
		args := req.GetArguments()
		if v, ok := args["title"].(string); ok {
			patch.Title = &v
		}
		if v, ok := args["content"].(string); ok {
			patch.Content = &v
		}
		if v, ok := args["link"].(string); ok {
			patch.Link = &v
		}

		item, err := eng.Mutator.Update(ctx, coordID, patch)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Updated %s", item.Metadata.CoordID)), nil
	}
}

// --- delete_tile ---

func deleteTileTool() mcp.Tool {
	return mcp.NewTool("delete_tile",
		mcp.WithDescription("Delete the tile at a coordinate."),
		mcp.WithString("coord_id",
			mcp.Description("Coordinate id of the tile"),
			mcp.Required(),
		),
	)
}

func deleteTileHandler(eng *engine.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		coordID := req.GetString("coord_id", "")
		if coordID == "" {
			return toolError(fmt.Errorf("coord_id is required"))
		}
		if err := eng.Mutator.Delete(ctx, coordID); err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Deleted %s", coordID)), nil
	}
}

// --- move_tile ---

func moveTileTool() mcp.Tool {
	return mcp.NewTool("move_tile",
		mcp.WithDescription("Move a tile to a free coordinate."),
		mcp.WithString("from",
			mcp.Description("Current coordinate id"),
			mcp.Required(),
		),
		mcp.WithString("to",
			mcp.Description("Destination coordinate id"),
			mcp.Required(),
		),
	)
}

func moveTileHandler(eng *engine.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		from := req.GetString("from", "")
		to := req.GetString("to", "")
		if from == "" || to == "" {
			return toolError(fmt.Errorf("from and to are required"))
		}
		item, err := eng.Mutator.Move(ctx, from, to)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Moved to %s", item.Metadata.CoordID)), nil
	}
}

// --- set_visibility ---

func setVisibilityTool() mcp.Tool {
	return mcp.NewTool("set_visibility",
		mcp.WithDescription("Set a tile's visibility, cascading to all its descendants."),
		mcp.WithString("coord_id",
			mcp.Description("Coordinate id of the subtree root"),
			mcp.Required(),
		),
		mcp.WithString("visibility",
			mcp.Description("public or private"),
			mcp.Required(),
		),
	)
}

func setVisibilityHandler(eng *engine.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		coordID := req.GetString("coord_id", "")
		visibility := req.GetString("visibility", "")
		if coordID == "" || visibility == "" {
			return toolError(fmt.Errorf("coord_id and visibility are required"))
		}
		if visibility != domain.VisibilityPublic && visibility != domain.VisibilityPrivate {
			return toolError(fmt.Errorf("visibility must be public or private"))
		}
		if err := eng.Mutator.UpdateVisibility(ctx, coordID, visibility); err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Visibility of %s set to %s", coordID, visibility)), nil
	}
}

// --- sync ---

func syncTool() mcp.Tool {
	return mcp.NewTool("sync",
		mcp.WithDescription("Force an immediate cache sync against the server."),
	)
}

func syncHandler(eng *engine.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := eng.Syncer.ForceSync(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Synced %d regions (%d items)", result.RegionsReloaded, result.ItemsSynced)), nil
	}
}
