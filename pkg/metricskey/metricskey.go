package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	// StatsToolCallsSucceeded is base for counter metric for tool calls succeeded
	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls not found",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsUnavailable = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_unavailable",
		Help:         "stats_tool_calls_unavailable provides total tool calls rejected as unavailable for the session",
		RequiredTags: []string{"tool"},
	}

	StatsFanoutTasksSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_fanout_tasks_succeeded",
		Help:         "stats_fanout_tasks_succeeded provides total fan-out sub-requests succeeded",
		RequiredTags: []string{"batch"},
	}

	StatsFanoutTasksFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_fanout_tasks_failed",
		Help:         "stats_fanout_tasks_failed provides total fan-out sub-requests failed",
		RequiredTags: []string{"batch"},
	}

	StatsProviderCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_provider_calls_failed",
		Help:         "stats_provider_calls_failed provides total downstream provider calls failed",
		RequiredTags: []string{"provider"},
	}
)

// Perf
var (
	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}

	PerfFanout = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_fanout",
		Help:         "perf_fanout provides duration of fan-out until all sub-requests settle",
		RequiredTags: []string{"batch"},
	}

	PerfProviderCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_provider_call",
		Help:         "perf_provider_call provides duration of downstream provider call",
		RequiredTags: []string{"provider"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfFanout,
	&PerfProviderCall,
	&PerfToolCall,
	&StatsFanoutTasksFailed,
	&StatsFanoutTasksSucceeded,
	&StatsProviderCallsFailed,
	&StatsToolCallsFailed,
	&StatsToolCallsNotFound,
	&StatsToolCallsSucceeded,
	&StatsToolCallsUnavailable,
}
