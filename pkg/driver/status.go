// Package driver defines the contract between the session layer and a Sedna
// native driver handle.
//
// A Conn is the opaque per-connection handle of the native client library:
// every call reports a Status code and the human readable cause of the last
// failure is available through LastError. The session layer in pkg/api never
// looks inside a Conn; it only sequences calls and interprets status codes.
package driver

import "fmt"

// Status 驱动状态码（与 libsedna 的取值保持一致）
type Status int

const (
	StatusOperationSucceeded Status = 0

	StatusSessionOpen          Status = 1
	StatusSessionClosed        Status = 2
	StatusAuthenticationFailed Status = -3
	StatusOpenSessionFailed    Status = -4
	StatusCloseSessionFailed   Status = -5

	StatusQuerySucceeded    Status = 6
	StatusQueryFailed       Status = -7
	StatusUpdateSucceeded   Status = 8
	StatusUpdateFailed      Status = -9
	StatusBulkLoadSucceeded Status = 10
	StatusBulkLoadFailed    Status = -11

	StatusBeginTransactionSucceeded    Status = 12
	StatusBeginTransactionFailed       Status = -13
	StatusRollbackTransactionSucceeded Status = 14
	StatusRollbackTransactionFailed    Status = -15
	StatusCommitTransactionSucceeded   Status = 16
	StatusCommitTransactionFailed      Status = -17

	StatusNextItemSucceeded Status = 18
	StatusNextItemFailed    Status = -19
	StatusNoItem            Status = 20
	StatusResultEnd         Status = 21

	StatusDataChunkLoaded Status = 23
	StatusError           Status = -24

	StatusTransactionActive Status = 25
	StatusNoTransaction     Status = 26

	StatusConnectionOK     Status = 27
	StatusConnectionClosed Status = 28
	StatusConnectionFailed Status = -29

	StatusSetAttributeSucceeded Status = 32
)

var statusNames = map[Status]string{
	StatusOperationSucceeded:           "OPERATION_SUCCEEDED",
	StatusSessionOpen:                  "SESSION_OPEN",
	StatusSessionClosed:                "SESSION_CLOSED",
	StatusAuthenticationFailed:         "AUTHENTICATION_FAILED",
	StatusOpenSessionFailed:            "OPEN_SESSION_FAILED",
	StatusCloseSessionFailed:           "CLOSE_SESSION_FAILED",
	StatusQuerySucceeded:               "QUERY_SUCCEEDED",
	StatusQueryFailed:                  "QUERY_FAILED",
	StatusUpdateSucceeded:              "UPDATE_SUCCEEDED",
	StatusUpdateFailed:                 "UPDATE_FAILED",
	StatusBulkLoadSucceeded:            "BULK_LOAD_SUCCEEDED",
	StatusBulkLoadFailed:               "BULK_LOAD_FAILED",
	StatusBeginTransactionSucceeded:    "BEGIN_TRANSACTION_SUCCEEDED",
	StatusBeginTransactionFailed:       "BEGIN_TRANSACTION_FAILED",
	StatusRollbackTransactionSucceeded: "ROLLBACK_TRANSACTION_SUCCEEDED",
	StatusRollbackTransactionFailed:    "ROLLBACK_TRANSACTION_FAILED",
	StatusCommitTransactionSucceeded:   "COMMIT_TRANSACTION_SUCCEEDED",
	StatusCommitTransactionFailed:      "COMMIT_TRANSACTION_FAILED",
	StatusNextItemSucceeded:            "NEXT_ITEM_SUCCEEDED",
	StatusNextItemFailed:               "NEXT_ITEM_FAILED",
	StatusNoItem:                       "NO_ITEM",
	StatusResultEnd:                    "RESULT_END",
	StatusDataChunkLoaded:              "DATA_CHUNK_LOADED",
	StatusError:                        "ERROR",
	StatusTransactionActive:            "TRANSACTION_ACTIVE",
	StatusNoTransaction:                "NO_TRANSACTION",
	StatusConnectionOK:                 "CONNECTION_OK",
	StatusConnectionClosed:             "CONNECTION_CLOSED",
	StatusConnectionFailed:             "CONNECTION_FAILED",
	StatusSetAttributeSucceeded:        "SET_ATTRIBUTE_SUCCEEDED",
}

// String 返回状态码名称
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATUS(%d)", int(s))
}

// Failed reports whether the code is one of the negative failure codes.
func (s Status) Failed() bool {
	return s < 0
}

// Attr identifies a connection attribute settable through Conn.SetAttr.
type Attr int

// AttrAutocommit is the only attribute sessions set.
const AttrAutocommit Attr = 0

// Autocommit attribute values.
const (
	AutocommitOff = 30
	AutocommitOn  = 31
)

// AutocommitValue converts a flag into the attribute value expected by SetAttr.
func AutocommitValue(on bool) int {
	if on {
		return AutocommitOn
	}
	return AutocommitOff
}
