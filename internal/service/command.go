package service

import (
	"errors"
	"fmt"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/engine"
)

// ErrInvalidCommand is returned by Execute for an unknown op or a missing
// argument. Engine operations themselves never fail.
var ErrInvalidCommand = errors.New("invalid command")

// Op names accepted by Execute.
const (
	OpAddRow          = "addRow"
	OpDeleteRow       = "deleteRow"
	OpDuplicateRow    = "duplicateRow"
	OpMoveRow         = "moveRow"
	OpRelocateRow     = "relocateRow"
	OpUpdateRowStyle  = "updateRowStyle"
	OpAddColumn       = "addColumn"
	OpDeleteColumn    = "deleteColumn"
	OpDuplicateColumn = "duplicateColumn"
	OpSplitColumn     = "splitColumn"
	OpMoveColumn      = "moveColumn"
	OpRelocateColumn  = "relocateColumn"
	OpSetColumnGrid   = "setColumnGrid"
	OpAddBlock        = "addBlock"
	OpUpdateBlock     = "updateBlock"
	OpDeleteBlock     = "deleteBlock"
	OpDuplicateBlock  = "duplicateBlock"
	OpMoveBlock       = "moveBlock"
	OpRelocateBlock   = "relocateBlock"
	OpUpdateMetadata  = "updateMetadata"
	OpUndo            = "undo"
	OpRedo            = "redo"
	OpSelectRow       = "selectRow"
	OpSelectColumn    = "selectColumn"
	OpSelectBlock     = "selectBlock"
	OpClearSelection  = "clearSelection"
	OpRestore         = "restore"
)

// Command is the transport form of a session call, decoded from JSON by the
// HTTP and websocket handlers. Which fields are read depends on Op.
type Command struct {
	Op            string                `json:"op"`
	RowID         string                `json:"rowId,omitempty"`
	ColumnID      string                `json:"columnId,omitempty"`
	BlockID       string                `json:"blockId,omitempty"`
	AfterRowID    string                `json:"afterRowId,omitempty"`
	AfterColumnID string                `json:"afterColumnId,omitempty"`
	AfterBlockID  string                `json:"afterBlockId,omitempty"`
	BlockType     string                `json:"blockType,omitempty"`
	ColumnCount   int                   `json:"columnCount,omitempty"`
	Direction     engine.Direction      `json:"direction,omitempty"`
	Index         *int                  `json:"index,omitempty"`
	Target        *domain.ColumnRef     `json:"target,omitempty"`
	Patch         *domain.BlockPatch    `json:"patch,omitempty"`
	Style         *domain.RowStyle      `json:"style,omitempty"`
	Grid          *domain.Grid          `json:"grid,omitempty"`
	Metadata      *domain.MetadataPatch `json:"metadata,omitempty"`
}

func (c Command) require(names ...string) error {
	for _, n := range names {
		missing := false
		switch n {
		case "rowId":
			missing = c.RowID == ""
		case "columnId":
			missing = c.ColumnID == ""
		case "blockId":
			missing = c.BlockID == ""
		case "blockType":
			missing = c.BlockType == ""
		case "direction":
			missing = !c.Direction.Valid()
		case "index":
			missing = c.Index == nil
		case "target":
			missing = c.Target == nil || c.Target.RowID == "" || c.Target.ColumnID == ""
		case "patch":
			missing = c.Patch == nil
		case "style":
			missing = c.Style == nil
		case "grid":
			missing = c.Grid == nil
		case "metadata":
			missing = c.Metadata == nil
		}
		if missing {
			return fmt.Errorf("%w: %s requires %s", ErrInvalidCommand, c.Op, n)
		}
	}
	return nil
}

// Validate checks that the op is known and that its required arguments are
// present. It does not resolve IDs.
func (c Command) Validate() error {
	var need []string
	switch c.Op {
	case OpAddRow, OpUndo, OpRedo, OpClearSelection:
	case OpDeleteRow, OpDuplicateRow, OpSelectRow:
		need = []string{"rowId"}
	case OpMoveRow:
		need = []string{"rowId", "direction"}
	case OpRelocateRow:
		need = []string{"rowId", "index"}
	case OpUpdateRowStyle:
		need = []string{"rowId", "style"}
	case OpAddColumn:
		need = []string{"rowId"}
	case OpDeleteColumn, OpDuplicateColumn, OpSplitColumn, OpSelectColumn:
		need = []string{"rowId", "columnId"}
	case OpMoveColumn:
		need = []string{"rowId", "columnId", "direction"}
	case OpRelocateColumn:
		need = []string{"rowId", "columnId", "index"}
	case OpSetColumnGrid:
		need = []string{"rowId", "columnId", "grid"}
	case OpAddBlock:
		need = []string{"rowId", "columnId", "blockType"}
	case OpUpdateBlock:
		need = []string{"rowId", "columnId", "blockId", "patch"}
	case OpDeleteBlock, OpDuplicateBlock, OpSelectBlock:
		need = []string{"rowId", "columnId", "blockId"}
	case OpMoveBlock:
		need = []string{"rowId", "columnId", "blockId", "direction"}
	case OpRelocateBlock:
		need = []string{"rowId", "columnId", "blockId", "target"}
	case OpUpdateMetadata:
		need = []string{"metadata"}
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidCommand, c.Op)
	}
	return c.require(need...)
}

// ExecuteAll checks every command before running any of them, so an invalid
// batch leaves the session untouched. Valid commands run in order.
func (s *Session) ExecuteAll(cmds []Command) (domain.SessionState, error) {
	for i, cmd := range cmds {
		if err := cmd.Validate(); err != nil {
			return s.State(), fmt.Errorf("command %d: %w", i, err)
		}
	}
	state := s.State()
	for _, cmd := range cmds {
		state = s.run(cmd)
	}
	return state, nil
}

// Execute dispatches cmd to the matching session method.
func (s *Session) Execute(cmd Command) (domain.SessionState, error) {
	if err := cmd.Validate(); err != nil {
		return s.State(), err
	}
	return s.run(cmd), nil
}

func (s *Session) run(cmd Command) domain.SessionState {
	switch cmd.Op {
	case OpAddRow:
		return s.AddRow(cmd.AfterRowID, cmd.ColumnCount)
	case OpDeleteRow:
		return s.DeleteRow(cmd.RowID)
	case OpDuplicateRow:
		return s.DuplicateRow(cmd.RowID)
	case OpMoveRow:
		return s.MoveRow(cmd.RowID, cmd.Direction)
	case OpRelocateRow:
		return s.RelocateRow(cmd.RowID, *cmd.Index)
	case OpUpdateRowStyle:
		return s.UpdateRowStyle(cmd.RowID, *cmd.Style)
	case OpAddColumn:
		return s.AddColumn(cmd.RowID, cmd.AfterColumnID)
	case OpDeleteColumn:
		return s.DeleteColumn(cmd.RowID, cmd.ColumnID)
	case OpDuplicateColumn:
		return s.DuplicateColumn(cmd.RowID, cmd.ColumnID)
	case OpSplitColumn:
		return s.SplitColumn(cmd.RowID, cmd.ColumnID)
	case OpMoveColumn:
		return s.MoveColumn(cmd.RowID, cmd.ColumnID, cmd.Direction)
	case OpRelocateColumn:
		return s.RelocateColumn(cmd.RowID, cmd.ColumnID, *cmd.Index)
	case OpSetColumnGrid:
		return s.SetColumnGrid(cmd.RowID, cmd.ColumnID, *cmd.Grid)
	case OpAddBlock:
		return s.AddBlock(cmd.RowID, cmd.ColumnID, cmd.BlockType, cmd.AfterBlockID)
	case OpUpdateBlock:
		return s.UpdateBlock(cmd.RowID, cmd.ColumnID, cmd.BlockID, *cmd.Patch)
	case OpDeleteBlock:
		return s.DeleteBlock(cmd.RowID, cmd.ColumnID, cmd.BlockID)
	case OpDuplicateBlock:
		return s.DuplicateBlock(cmd.RowID, cmd.ColumnID, cmd.BlockID)
	case OpMoveBlock:
		return s.MoveBlock(cmd.RowID, cmd.ColumnID, cmd.BlockID, cmd.Direction)
	case OpRelocateBlock:
		index := -1
		if cmd.Index != nil {
			index = *cmd.Index
		}
		src := domain.BlockRef{RowID: cmd.RowID, ColumnID: cmd.ColumnID, BlockID: cmd.BlockID}
		return s.RelocateBlock(src, *cmd.Target, index)
	case OpUpdateMetadata:
		return s.UpdateMetadata(*cmd.Metadata)
	case OpUndo:
		return s.Undo()
	case OpRedo:
		return s.Redo()
	case OpSelectRow:
		return s.SelectRow(cmd.RowID)
	case OpSelectColumn:
		return s.SelectColumn(cmd.RowID, cmd.ColumnID)
	case OpSelectBlock:
		return s.SelectBlock(cmd.RowID, cmd.ColumnID, cmd.BlockID)
	default:
		return s.ClearSelection()
	}
}

// SelectCommand builds the selection command for the most specific ID
// given: a block, then a column, then a row. No row clears the selection.
func SelectCommand(rowID, columnID, blockID string) Command {
	cmd := Command{RowID: rowID, ColumnID: columnID, BlockID: blockID}
	switch {
	case rowID == "":
		cmd.Op = OpClearSelection
	case blockID != "":
		cmd.Op = OpSelectBlock
	case columnID != "":
		cmd.Op = OpSelectColumn
	default:
		cmd.Op = OpSelectRow
	}
	return cmd
}
