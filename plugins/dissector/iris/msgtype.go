package iris

import (
	"fmt"
	"sort"
)

// MessageType is the operation code carried at offset 12 of every IRIS
// message. Each code is two ASCII characters read little-endian, so
// Handshake (21320, 0x5348) travels as "HS".
type MessageType uint16

const (
	// Session
	Handshake                MessageType = 21320
	Connect                  MessageType = 20035
	Disconnect               MessageType = 17220
	ResetConnection          MessageType = 20050
	GatewayInit              MessageType = 18759
	GetIRISInfo              MessageType = 18755
	GetServerError           MessageType = 17743
	ExternalInterrupt        MessageType = 18757
	Ping                     MessageType = 18256
	PingTwo                  MessageType = 12880
	SendTwoFactorToken       MessageType = 17970
	IsTwoFactorEnabled       MessageType = 17714
	MessageJavaObjectCreated MessageType = 14681

	// Statements and cursors
	Prepare                      MessageType = 20560
	DirectUpdate                 MessageType = 21828
	DirectQuery                  MessageType = 20804
	DirectStoredProcedure        MessageType = 21316
	PrepareDialect               MessageType = 17488
	DirectExecuteDialect         MessageType = 17476
	PreparedUpdateExecute        MessageType = 21840
	PreparedQueryExecute         MessageType = 20816
	FetchData                    MessageType = 17478
	CloseCursor                  MessageType = 17219
	PrepareStoredProcedure       MessageType = 20563
	StoredProcedureUpdateExecute MessageType = 21843
	StoredProcedureQueryExecute  MessageType = 20819
	StoredProcedureFetchData     MessageType = 18003
	ExecuteMultipleResultSets    MessageType = 21325
	MultipleResultSetsFetchData  MessageType = 17485
	GetMoreResults               MessageType = 21069
	GetResultSetObject           MessageType = 21062
	GetAutoGeneratedKeys         MessageType = 18247
	ExecuteStaticCursor          MessageType = 22597
	DirectStaticCursor           MessageType = 22596
	FetchStaticCursor            MessageType = 22598
	ExecuteStatementBatch        MessageType = 16965
	SetQueryPrefetchSize         MessageType = 16976
	CloseStatement               MessageType = 21827
	UpdateCache                  MessageType = 17237
	GetSchema                    MessageType = 21319
	CompareTimestamp             MessageType = 22083

	// Streams
	GetStreamSize         MessageType = 21331
	ReadStream            MessageType = 21322
	StoreBinaryStream     MessageType = 16979
	StoreCharacterStream  MessageType = 19795
	StreamGetBytes        MessageType = 16967
	StreamSetBytes        MessageType = 23123
	StreamTruncate        MessageType = 22611
	StreamGetPosition     MessageType = 20551
	CloseStream           MessageType = 21315
	StreamReleaseReadLock MessageType = 21075
	StreamSetPrefetchSize MessageType = 20051
	OpenStream            MessageType = 21327

	// Transactions
	Commit                  MessageType = 17236
	Rollback                MessageType = 21076
	IsolationLevel          MessageType = 19529
	AutocommitOff           MessageType = 17985
	AutocommitOn            MessageType = 20033
	InTransaction           MessageType = 21577
	ToggleSynchronousCommit MessageType = 21332
	ReadUncommitted         MessageType = 21842
	ReadCommitted           MessageType = 17234

	// JDBC metadata
	JDBCBestRowID            MessageType = 21058
	JDBCCatalogs             MessageType = 16707
	JDBCColumnPriv           MessageType = 20547
	JDBCColumns              MessageType = 20291
	JDBCCrossReference       MessageType = 21059
	JDBCExportedKeys         MessageType = 19269
	JDBCImportedKeys         MessageType = 19273
	JDBCIndexInfo            MessageType = 18761
	JDBCPrimaryKeys          MessageType = 19280
	JDBCProcedureCol         MessageType = 17232
	JDBCProcedures           MessageType = 21072
	JDBCSchemas              MessageType = 17235
	JDBCTablePriv            MessageType = 20564
	JDBCTables               MessageType = 16724
	JDBCTableTypes           MessageType = 21588
	JDBCTypeInfo             MessageType = 18772
	JDBCVersionCol           MessageType = 17238
	JDBCUDTs                 MessageType = 21589
	JDBCSuperTypes           MessageType = 22867
	JDBCSuperTables          MessageType = 19539
	JDBCGetAttributes        MessageType = 21569
	JDBCGetFunctionColumns   MessageType = 17222
	JDBCGetFunctions         MessageType = 20038
	JDBCClientInfoProperties MessageType = 17987
	SetClientInfoProperties  MessageType = 18243
	JDBCPseudoColumns        MessageType = 18499
)

// messageTypeNames is the closed vocabulary. A code is a valid IRIS
// message type if and only if it has an entry here.
var messageTypeNames = map[MessageType]string{
	Handshake:                "HANDSHAKE",
	Connect:                  "CONNECT",
	Disconnect:               "DISCONNECT",
	ResetConnection:          "RESET_CONNECTION",
	GatewayInit:              "GATEWAY_INIT",
	GetIRISInfo:              "GET_IRIS_INFO",
	GetServerError:           "GET_SERVER_ERROR",
	ExternalInterrupt:        "EXTERNAL_INTERRUPT",
	Ping:                     "PING",
	PingTwo:                  "PING_TWO",
	SendTwoFactorToken:       "SEND_TWO_FACTOR_TOKEN",
	IsTwoFactorEnabled:       "IS_TWO_FACTOR_ENABLED",
	MessageJavaObjectCreated: "MESSAGE_JAVA_OBJECT_CREATED",

	Prepare:                      "PREPARE",
	DirectUpdate:                 "DIRECT_UPDATE",
	DirectQuery:                  "DIRECT_QUERY",
	DirectStoredProcedure:        "DIRECT_STORED_PROCEDURE",
	PrepareDialect:               "PREPARE_DIALECT",
	DirectExecuteDialect:         "DIRECT_EXECUTE_DIALECT",
	PreparedUpdateExecute:        "PREPARED_UPDATE_EXECUTE",
	PreparedQueryExecute:         "PREPARED_QUERY_EXECUTE",
	FetchData:                    "FETCH_DATA",
	CloseCursor:                  "CLOSE_CURSOR",
	PrepareStoredProcedure:       "PREPARE_STORED_PROCEDURE",
	StoredProcedureUpdateExecute: "STORED_PROCEDURE_UPDATE_EXECUTE",
	StoredProcedureQueryExecute:  "STORED_PROCEDURE_QUERY_EXECUTE",
	StoredProcedureFetchData:     "STORED_PROCEDURE_FETCH_DATA",
	ExecuteMultipleResultSets:    "EXECUTE_MULTIPLE_RESULT_SETS",
	MultipleResultSetsFetchData:  "MULTIPLE_RESULT_SETS_FETCH_DATA",
	GetMoreResults:               "GET_MORE_RESULTS",
	GetResultSetObject:           "GET_RESULT_SET_OBJECT",
	GetAutoGeneratedKeys:         "GET_AUTO_GENERATED_KEYS",
	ExecuteStaticCursor:          "EXECUTE_STATIC_CURSOR",
	DirectStaticCursor:           "DIRECT_STATIC_CURSOR",
	FetchStaticCursor:            "FETCH_STATIC_CURSOR",
	ExecuteStatementBatch:        "EXECUTE_STATEMENT_BATCH",
	SetQueryPrefetchSize:         "SET_QUERY_PREFETCH_SIZE",
	CloseStatement:               "CLOSE_STATEMENT",
	UpdateCache:                  "UPDATE_CACHE",
	GetSchema:                    "GET_SCHEMA",
	CompareTimestamp:             "COMPARE_TIMESTAMP",

	GetStreamSize:         "GET_STREAM_SIZE",
	ReadStream:            "READ_STREAM",
	StoreBinaryStream:     "STORE_BINARY_STREAM",
	StoreCharacterStream:  "STORE_CHARACTER_STREAM",
	StreamGetBytes:        "STREAM_GET_BYTES",
	StreamSetBytes:        "STREAM_SET_BYTES",
	StreamTruncate:        "STREAM_TRUNCATE",
	StreamGetPosition:     "STREAM_GET_POSITION",
	CloseStream:           "CLOSE_STREAM",
	StreamReleaseReadLock: "STREAM_RELEASE_READ_LOCK",
	StreamSetPrefetchSize: "STREAM_SET_PREFETCH_SIZE",
	OpenStream:            "OPEN_STREAM",

	Commit:                  "COMMIT",
	Rollback:                "ROLLBACK",
	IsolationLevel:          "ISOLATION_LEVEL",
	AutocommitOff:           "AUTOCOMMIT_OFF",
	AutocommitOn:            "AUTOCOMMIT_ON",
	InTransaction:           "IN_TRANSACTION",
	ToggleSynchronousCommit: "TOGGLE_SYNCHRONOUS_COMMIT",
	ReadUncommitted:         "READ_UNCOMMITTED",
	ReadCommitted:           "READ_COMMITTED",

	JDBCBestRowID:            "JDBC_BESTROWID",
	JDBCCatalogs:             "JDBC_CATALOGS",
	JDBCColumnPriv:           "JDBC_COLUMNPRIV",
	JDBCColumns:              "JDBC_COLUMNS",
	JDBCCrossReference:       "JDBC_CROSSREFERENCE",
	JDBCExportedKeys:         "JDBC_EXPORTEDKEYS",
	JDBCImportedKeys:         "JDBC_IMPORTEDKEYS",
	JDBCIndexInfo:            "JDBC_INDEXINFO",
	JDBCPrimaryKeys:          "JDBC_PRIMARYKEYS",
	JDBCProcedureCol:         "JDBC_PROCEDURECOL",
	JDBCProcedures:           "JDBC_PROCEDURES",
	JDBCSchemas:              "JDBC_SCHEMAS",
	JDBCTablePriv:            "JDBC_TABLEPRIV",
	JDBCTables:               "JDBC_TABLES",
	JDBCTableTypes:           "JDBC_TABLETYPES",
	JDBCTypeInfo:             "JDBC_TYPEINFO",
	JDBCVersionCol:           "JDBC_VERSIONCOL",
	JDBCUDTs:                 "JDBC_UDTS",
	JDBCSuperTypes:           "JDBC_SUPER_TYPES",
	JDBCSuperTables:          "JDBC_SUPER_TABLES",
	JDBCGetAttributes:        "JDBC_GET_ATTRIBUTES",
	JDBCGetFunctionColumns:   "JDBC_GET_FUNCTION_COLUMNS",
	JDBCGetFunctions:         "JDBC_GET_FUNCTIONS",
	JDBCClientInfoProperties: "JDBC_CLIENT_INFO_PROPERTIES",
	SetClientInfoProperties:  "SET_CLIENT_INFO_PROPERTIES",
	JDBCPseudoColumns:        "JDBC_PSEUDO_COLUMNS",
}

// Known reports whether t belongs to the IRIS vocabulary.
func (t MessageType) Known() bool {
	_, ok := messageTypeNames[t]
	return ok
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint16(t))
}

// Mnemonic returns the two characters the code is made of on the wire.
// Codes outside printable ASCII are rendered in hex.
func (t MessageType) Mnemonic() string {
	lo, hi := byte(t), byte(t>>8)
	if lo < 0x20 || lo > 0x7e || hi < 0x20 || hi > 0x7e {
		return fmt.Sprintf("%04x", uint16(t))
	}
	return string([]byte{lo, hi})
}

// Vocabulary returns every known message type in ascending order.
func Vocabulary() []MessageType {
	types := make([]MessageType, 0, len(messageTypeNames))
	for t := range messageTypeNames {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
