package pack

// Task selects the configuration variant.
type Task int

const (
	// TaskUnsupported is any task name other than dev or build.
	TaskUnsupported Task = iota

	// TaskDev is interactive development with live reload.
	TaskDev

	// TaskBuild is an optimized production build.
	TaskBuild
)

const (
	// TaskEnv names the environment variable that selects the task.
	TaskEnv = "SITEPACK_TASK"

	// NPMTaskEnv is consulted when TaskEnv is unset, so that "npm run dev"
	// and "npm run build" select the matching task.
	NPMTaskEnv = "npm_lifecycle_event"
)

// ParseTask maps a task name to a Task. Matching is exact.
func ParseTask(name string) Task {
	switch name {
	case "dev":
		return TaskDev
	case "build":
		return TaskBuild
	default:
		return TaskUnsupported
	}
}

// TaskFromEnv reads the task name from the environment and parses it. The
// raw name is returned for diagnostics.
func TaskFromEnv(getenv func(string) string) (Task, string) {
	name := getenv(TaskEnv)
	if name == "" {
		name = getenv(NPMTaskEnv)
	}
	return ParseTask(name), name
}

// String returns the task name.
func (t Task) String() string {
	switch t {
	case TaskDev:
		return "dev"
	case TaskBuild:
		return "build"
	default:
		return "unsupported"
	}
}
