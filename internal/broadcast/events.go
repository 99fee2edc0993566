package broadcast

// Client-to-server event names.
const (
	EventJoin          = "join"
	EventPresenterJoin = "presenterJoin"
	EventCreatePoll    = "createPoll"
	EventSubmitAnswer  = "submitAnswer"
	EventChatMessage   = "chatMessage" // also relayed server-to-all
)

// Server-to-client event names.
const (
	EventPollStarted        = "pollStarted"
	EventPollCreated        = "pollCreated"
	EventPollCompleted      = "pollCompleted"
	EventPollError          = "pollError"
	EventAnswerSubmitted    = "answerSubmitted"
	EventStudentJoined      = "studentJoined"
	EventStudentLeft        = "studentLeft"
	EventPresenterConnected = "presenterConnected"
)
