package check

// TerminatePolicy turns every handled failure into an error, so the first
// violation stops the run.
type TerminatePolicy struct{}

// Terminate returns the fail-fast policy.
func Terminate() TerminatePolicy { return TerminatePolicy{} }

func (TerminatePolicy) ColumnHandler(fc FileCheck, line int64, row []string) ColumnHandler {
	return terminateColumnHandler{fc: fc, line: line, row: row}
}

func (TerminatePolicy) FileHandler() FileHandler { return terminateFileHandler{} }

func (TerminatePolicy) DirectoryHandler() DirectoryHandler { return terminateDirectoryHandler{} }

type terminateColumnHandler struct {
	fc   FileCheck
	line int64
	row  []string
}

func (h terminateColumnHandler) HandleColumn(code Code, field, message string) error {
	return &ColumnCheckError{Violation: columnViolation(h.fc, h.line, h.row, code, field, message)}
}

type terminateFileHandler struct{}

func (terminateFileHandler) HandleLine(fc FileCheck, code Code, message string, line int64, row []string) error {
	return &FileCheckError{Violation: lineViolation(fc, code, message, line, row)}
}

func (terminateFileHandler) HandleFile(fc FileCheck, message string) error {
	return &FileCheckError{Violation: fileViolation(fc, message)}
}

type terminateDirectoryHandler struct{}

func (terminateDirectoryHandler) HandleDirectory(dc DirectoryCheck, dir, message string) error {
	return &DirectoryCheckError{Violation: directoryViolation(dc, dir, message)}
}
