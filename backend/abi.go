package backend

// Guest exports recognized by the harness. Only ExportEvent is required.
const (
	ExportEvent              = "event"
	ExportPrepare            = "prepare"
	ExportCleanup            = "cleanup"
	ExportHelp               = "help"
	ExportInit               = "init"
	ExportDone               = "done"
	ExportThreadInit         = "thread_init"
	ExportThreadDone         = "thread_done"
	ExportThreadRun          = "thread_run"
	ExportReportIntermediate = "report_intermediate"
	ExportReportCumulative   = "report_cumulative"
	ExportCreateBuffer       = "create_buffer"

	// ExportMemory is the conventional name of the guest's linear memory.
	ExportMemory = "memory"
)
