package check

// FileCheck identifies the file being checked. Handlers use it to format
// diagnostics.
type FileCheck interface {
	Name() string
	Path() string
}

// DirectoryCheck identifies a directory-level check.
type DirectoryCheck interface {
	Name() string
}

// ColumnHandler receives failed column values for one row.
type ColumnHandler interface {
	HandleColumn(code Code, field, message string) error
}

// FileHandler receives line-level and whole-file failures.
type FileHandler interface {
	HandleLine(fc FileCheck, code Code, message string, line int64, row []string) error
	HandleFile(fc FileCheck, message string) error
}

// DirectoryHandler receives directory-level failures.
type DirectoryHandler interface {
	HandleDirectory(dc DirectoryCheck, dir, message string) error
}

// Policy decides what a failed check means for the run. A handler that
// returns a non-nil error aborts the run; one that returns nil lets the
// driver carry on.
type Policy interface {
	ColumnHandler(fc FileCheck, line int64, row []string) ColumnHandler
	FileHandler() FileHandler
	DirectoryHandler() DirectoryHandler
}

func columnViolation(fc FileCheck, line int64, row []string, code Code, field, message string) Violation {
	return Violation{
		Kind:    KindColumn,
		Code:    code,
		Check:   fc.Name(),
		Path:    fc.Path(),
		Line:    line,
		Row:     row,
		Field:   field,
		Message: message,
	}
}

func lineViolation(fc FileCheck, code Code, message string, line int64, row []string) Violation {
	return Violation{
		Kind:    KindLine,
		Code:    code,
		Check:   fc.Name(),
		Path:    fc.Path(),
		Line:    line,
		Row:     row,
		Message: message,
	}
}

func fileViolation(fc FileCheck, message string) Violation {
	return Violation{
		Kind:    KindFile,
		Code:    CodeFile,
		Check:   fc.Name(),
		Path:    fc.Path(),
		Message: message,
	}
}

func directoryViolation(dc DirectoryCheck, dir, message string) Violation {
	return Violation{
		Kind:    KindDirectory,
		Code:    CodeDirectory,
		Check:   dc.Name(),
		Path:    dir,
		Message: message,
	}
}
