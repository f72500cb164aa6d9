package apperrors

import (
	"errors"

	"github.com/palemoky/stone-rolling/internal/protocol"
)

// Kind 错误分类
type Kind int

const (
	// KindValidation 请求不合法（房间号错误、非法状态转换），不改变任何状态
	KindValidation Kind = iota
	// KindResource 外部资源失败（钱包不可用、余额不足）
	KindResource
	// KindInvariant 不变量被破坏，属于程序缺陷
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindResource:
		return "resource"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// GameError 游戏错误（房间、对局、钱包共享）
type GameError struct {
	Code    int
	Kind    Kind
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

// 预定义错误
var (
	ErrRoomNotFound       = validation(protocol.ErrCodeRoomNotFound)
	ErrRoomFull           = validation(protocol.ErrCodeRoomFull)
	ErrRoomAlreadyStarted = validation(protocol.ErrCodeRoomStarted)
	ErrAlreadyJoined      = validation(protocol.ErrCodeAlreadyJoined)
	ErrNotInRoom          = validation(protocol.ErrCodeNotInRoom)
	ErrNotWaiting         = validation(protocol.ErrCodeRoomNotWaiting)
	ErrNotEnoughPlayers   = validation(protocol.ErrCodeNotEnoughPlayers)
	ErrNotOwner           = validation(protocol.ErrCodeNotOwner)
	ErrInvalidStake       = validation(protocol.ErrCodeInvalidStake)
	ErrInvalidMaxPlayers  = validation(protocol.ErrCodeInvalidMaxPlayers)
	ErrNotInProgress      = validation(protocol.ErrCodeGameNotInProgress)
	ErrAlreadyRolled      = validation(protocol.ErrCodeAlreadyRolled)

	ErrInsufficientFunds = resource(protocol.ErrCodeInsufficientFunds)
	ErrLedgerUnavailable = resource(protocol.ErrCodeLedgerUnavailable)
	ErrSettlementPending = resource(protocol.ErrCodeSettlementPending)

	ErrInternal = &GameError{Code: protocol.ErrCodeInternal, Kind: KindInvariant, Message: protocol.ErrorMessages[protocol.ErrCodeInternal]}
)

func validation(code int) *GameError {
	return &GameError{Code: code, Kind: KindValidation, Message: protocol.ErrorMessages[code]}
}

func resource(code int) *GameError {
	return &GameError{Code: code, Kind: KindResource, Message: protocol.ErrorMessages[code]}
}

// Invariant 包装一个不变量错误，保留原因用于日志
func Invariant(cause error) error {
	return &invariantError{cause: cause}
}

type invariantError struct {
	cause error
}

func (e *invariantError) Error() string { return "invariant violation: " + e.cause.Error() }
func (e *invariantError) Unwrap() []error {
	return []error{ErrInternal, e.cause}
}

// KindOf 返回错误分类；未识别的错误按不变量处理
func KindOf(err error) Kind {
	var gameErr *GameError
	if errors.As(err, &gameErr) {
		return gameErr.Kind
	}
	return KindInvariant
}

// Public 返回可以发送给客户端的错误，内部错误统一替换为 ErrInternal
func Public(err error) *GameError {
	var gameErr *GameError
	if errors.As(err, &gameErr) && gameErr.Kind != KindInvariant {
		return gameErr
	}
	return ErrInternal
}
