package engine

import (
	"errors"

	"github.com/slekup/big-brain/internal/engine/history"
)

// Errors returned by editor operations.
var (
	// ErrDisposed indicates an operation on a disposed editor.
	ErrDisposed = errors.New("editor is disposed")

	// ErrObserverRegistered indicates a second commit observer.
	ErrObserverRegistered = errors.New("commit observer already registered")

	// ErrNotEditable indicates an editing instance configured as read-only.
	// Read-only content belongs in a preview.
	ErrNotEditable = errors.New("editor configured as not editable")

	// ErrInvalidOption indicates an option value New cannot use.
	ErrInvalidOption = errors.New("invalid editor option")

	// ErrInternal indicates a panic inside the commit pipeline. The editor
	// state is left as it was before the operation.
	ErrInternal = errors.New("internal editor error")

	// ErrNothingToUndo indicates the undo stack is empty.
	ErrNothingToUndo = history.ErrNothingToUndo

	// ErrNothingToRedo indicates the redo stack is empty.
	ErrNothingToRedo = history.ErrNothingToRedo
)
