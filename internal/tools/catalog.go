package tools

// Spec describes a tool's identity for system-prompt rendering without
// committing to an implementation. Concrete tool semantics (calendar
// access, web scraping, arithmetic evaluation, ...) are each tool's own
// problem and are supplied by the host application; the core only ships
// the catalog of names and schemas it expects those tools to expose.
type Spec struct {
	Name        string
	Description string
	Parameters  Schema
}

// DefaultCatalog returns the specs for the default-registered tool names
// from the data model: calculator, device_info, clipboard, web_search,
// calendar, reminders, open_app, timer. The host registers concrete Tool
// implementations under these names; the core never implements them.
func DefaultCatalog() []Spec {
	return []Spec{
		{
			Name:        "calculator",
			Description: "Evaluates a mathematical expression and returns the result.",
			Parameters: Schema{
				Type: "object",
				Properties: map[string]SchemaProperty{
					"expression": {Type: "string", Description: "The expression to evaluate, e.g. \"2 + 2\"."},
				},
				Required: []string{"expression"},
			},
		},
		{
			Name:        "device_info",
			Description: "Returns information about the current device (battery, storage, OS version).",
			Parameters:  Schema{Type: "object"},
		},
		{
			Name:        "clipboard",
			Description: "Reads or writes the system clipboard.",
			Parameters: Schema{
				Type: "object",
				Properties: map[string]SchemaProperty{
					"action": {Type: "string", Description: "Operation to perform.", Enum: []string{"read", "write"}},
					"text":   {Type: "string", Description: "Text to write; ignored for read."},
				},
				Required: []string{"action"},
			},
		},
		{
			Name:        "web_search",
			Description: "Searches the web and returns a summary of top results.",
			Parameters: Schema{
				Type: "object",
				Properties: map[string]SchemaProperty{
					"query": {Type: "string", Description: "Search query."},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "calendar",
			Description: "Reads or creates events on the user's calendar.",
			Parameters: Schema{
				Type: "object",
				Properties: map[string]SchemaProperty{
					"action": {Type: "string", Description: "Operation to perform.", Enum: []string{"list", "create"}},
					"title":  {Type: "string", Description: "Event title; used when creating."},
					"when":   {Type: "string", Description: "ISO-8601 timestamp; used when creating."},
				},
				Required: []string{"action"},
			},
		},
		{
			Name:        "reminders",
			Description: "Reads or creates reminders on the user's device.",
			Parameters: Schema{
				Type: "object",
				Properties: map[string]SchemaProperty{
					"action": {Type: "string", Description: "Operation to perform.", Enum: []string{"list", "create"}},
					"text":   {Type: "string", Description: "Reminder text; used when creating."},
				},
				Required: []string{"action"},
			},
		},
		{
			Name:        "open_app",
			Description: "Opens an application on the user's device by name.",
			Parameters: Schema{
				Type: "object",
				Properties: map[string]SchemaProperty{
					"name": {Type: "string", Description: "Application name to open."},
				},
				Required: []string{"name"},
			},
		},
		{
			Name:        "timer",
			Description: "Starts, cancels, or lists countdown timers.",
			Parameters: Schema{
				Type: "object",
				Properties: map[string]SchemaProperty{
					"action":          {Type: "string", Description: "Operation to perform.", Enum: []string{"start", "cancel", "list"}},
					"duration_secs":   {Type: "string", Description: "Duration in seconds; used when starting."},
				},
				Required: []string{"action"},
			},
		},
	}
}
