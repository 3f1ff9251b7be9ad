// Package tools defines the capability core of the conversational agent:
// tool definitions advertised to the model, plugins that implement them,
// the per-session context, the registry, and the dispatcher that routes a
// named call to its plugin and normalizes every outcome into a PluginResult.
package tools
