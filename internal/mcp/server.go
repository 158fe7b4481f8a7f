package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ldi/stint/internal/router"
	"github.com/ldi/stint/internal/timer"
	"github.com/ldi/stint/pkg/models"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates a new MCP server.
func NewServer(r *router.Router) *server.MCPServer {
	s := server.NewMCPServer("Stint", "0.1.0")

	s.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Get every tracked task with its status and elapsed time."),
	), getStateHandler(r))

	s.AddTool(mcp.NewTool("add_task",
		mcp.WithDescription("Start tracking the task behind a Basecamp URL. Any running task is paused first. Re-adding a known task resumes it and refreshes its title."),
		mcp.WithString("url", mcp.Description("Page URL (query and fragment are ignored)"), mcp.Required()),
		mcp.WithString("title", mcp.Description("Page title")),
	), addTaskHandler(r))

	s.AddTool(mcp.NewTool("toggle_task",
		mcp.WithDescription("Pause a running task, or start a paused one (pausing whichever task was running)."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
	), toggleTaskHandler(r))

	s.AddTool(mcp.NewTool("delete_task",
		mcp.WithDescription("Stop tracking a task. Unbanked time of a running task is discarded."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
	), deleteTaskHandler(r))

	s.AddTool(mcp.NewTool("open_reference",
		mcp.WithDescription("Open a task's page in the browser."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
	), openReferenceHandler(r))

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func toolError(err error) *mcp.CallToolResult {
	if router.IsUserError(err) {
		return mcp.NewToolResultError(router.UserMessage(err))
	}
	return mcp.NewToolResultError(err.Error())
}

func taskResult(task *models.Task, r *router.Router) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(timer.NewTaskView(task, r.Now()))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func getStateHandler(r *router.Router) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		state, err := r.FetchState(ctx)
		if err != nil {
			return toolError(err), nil
		}

		data, err := json.Marshal(timer.NewStateView(state, r.Now()))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	}
}

func addTaskHandler(r *router.Router) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url := mcp.ParseString(request, "url", "")
		title := mcp.ParseString(request, "title", "")

		task, err := r.Add(ctx, router.Page{URL: url, Title: title})
		if err != nil {
			return toolError(err), nil
		}

		return taskResult(task, r)
	}
}

func toggleTaskHandler(r *router.Router) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "task_id", "")

		task, err := r.Toggle(ctx, id)
		if err != nil {
			return toolError(err), nil
		}

		return taskResult(task, r)
	}
}

func deleteTaskHandler(r *router.Router) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "task_id", "")

		if err := r.Delete(ctx, id); err != nil {
			return toolError(err), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Task '%s' deleted", id)), nil
	}
}

func openReferenceHandler(r *router.Router) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "task_id", "")

		if err := r.OpenTask(ctx, id); err != nil {
			return toolError(err), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Opened task '%s'", id)), nil
	}
}
