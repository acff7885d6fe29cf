// Package types holds the JSON frames exchanged over the room websocket.
//
// Client -> Server
//
//	join            {identity}
//	previewMove     {column}
//	confirmMove     {}
//	cancelMove      {}
//	startPractice   {}
//	practiceMove    {column}
//	resetPractice   {}
//	endPractice     {}
//	requestRematch  {quick}
//	acceptRematch   {}
//	declineRematch  {}
//
// Server -> Client
//
//	assignedSlot / welcomeBack      {slot, state}
//	waitingForOpponent              {early_move}
//	gameStart / gameReset           {state}
//	opponentJoined / opponentLeft   {slot}
//	movePreviewed / moveCancelled   {move}
//	moveCommitted / gameWon / gameDraw {state, move}
//	rematchRequested                {quick}
//	rematchDeclined / notYourTurn   {}
//	practice*                       {practice, move}
//	error                           {code, error}
package types

type ClientType string

const (
	MsgJoin           ClientType = "join"
	MsgPreviewMove    ClientType = "previewMove"
	MsgConfirmMove    ClientType = "confirmMove"
	MsgCancelMove     ClientType = "cancelMove"
	MsgStartPractice  ClientType = "startPractice"
	MsgPracticeMove   ClientType = "practiceMove"
	MsgResetPractice  ClientType = "resetPractice"
	MsgEndPractice    ClientType = "endPractice"
	MsgRequestRematch ClientType = "requestRematch"
	MsgAcceptRematch  ClientType = "acceptRematch"
	MsgDeclineRematch ClientType = "declineRematch"
)

// Known reports whether t is one of the message types above.
func (t ClientType) Known() bool {
	switch t {
	case MsgJoin, MsgPreviewMove, MsgConfirmMove, MsgCancelMove,
		MsgStartPractice, MsgPracticeMove, MsgResetPractice, MsgEndPractice,
		MsgRequestRematch, MsgAcceptRematch, MsgDeclineRematch:
		return true
	}
	return false
}

type ClientMessage struct {
	Type     ClientType `json:"type"`
	Identity string     `json:"identity,omitempty"`
	Column   *int       `json:"column,omitempty"`
	Quick    bool       `json:"quick,omitempty"`
}

type ServerType string

const (
	EvtAssignedSlot       ServerType = "assignedSlot"
	EvtWelcomeBack        ServerType = "welcomeBack"
	EvtWaitingForOpponent ServerType = "waitingForOpponent"
	EvtGameStart          ServerType = "gameStart"
	EvtOpponentJoined     ServerType = "opponentJoined"
	EvtOpponentLeft       ServerType = "opponentLeft"
	EvtMovePreviewed      ServerType = "movePreviewed"
	EvtMoveCancelled      ServerType = "moveCancelled"
	EvtMoveCommitted      ServerType = "moveCommitted"
	EvtGameWon            ServerType = "gameWon"
	EvtGameDraw           ServerType = "gameDraw"
	EvtGameReset          ServerType = "gameReset"
	EvtRematchRequested   ServerType = "rematchRequested"
	EvtRematchDeclined    ServerType = "rematchDeclined"
	EvtNotYourTurn        ServerType = "notYourTurn"
	EvtPracticeStarted    ServerType = "practiceStarted"
	EvtPracticeMoveMade   ServerType = "practiceMoveMade"
	EvtPracticeWon        ServerType = "practiceWon"
	EvtPracticeDraw       ServerType = "practiceDraw"
	EvtPracticeReset      ServerType = "practiceReset"
	EvtPracticeEnded      ServerType = "practiceEnded"
	EvtError              ServerType = "error"
)

type ServerMessage struct {
	Type      ServerType     `json:"type"`
	Slot      int            `json:"slot,omitempty"`
	State     *GameState     `json:"state,omitempty"`
	Move      *Move          `json:"move,omitempty"`
	Practice  *PracticeState `json:"practice,omitempty"`
	Quick     bool           `json:"quick,omitempty"`
	EarlyMove bool           `json:"early_move,omitempty"`
	Code      ErrorCode      `json:"code,omitempty"`
	Error     string         `json:"error,omitempty"`
}

func Event(t ServerType) ServerMessage { return ServerMessage{Type: t} }

func ErrorMessage(code ErrorCode, msg string) ServerMessage {
	return ServerMessage{Type: EvtError, Code: code, Error: msg}
}
