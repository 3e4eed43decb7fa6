package telnet

// Telnet command constants (RFC 854/855)
const (
	CmdIAC  byte = 255 // Interpret As Command
	CmdDONT byte = 254
	CmdDO   byte = 253
	CmdWONT byte = 252
	CmdWILL byte = 251
	CmdSB   byte = 250 // Subnegotiation Begin
	CmdGA   byte = 249 // Go Ahead
	CmdEL   byte = 248 // Erase Line
	CmdEC   byte = 247 // Erase Character
	CmdAYT  byte = 246 // Are You There
	CmdAO   byte = 245 // Abort Output
	CmdIP   byte = 244 // Interrupt Process
	CmdBRK  byte = 243 // Break
	CmdDM   byte = 242 // Data Mark
	CmdNOP  byte = 241 // No Operation
	CmdSE   byte = 240 // Subnegotiation End
)

// Telnet option codes
const (
	OptEcho            byte = 1
	OptSuppressGoAhead byte = 3
	OptTerminalType    byte = 24 // RFC 1091
	OptNAWS            byte = 31
	OptTerminalSpeed   byte = 32 // RFC 1079
)

// Subnegotiation sub-commands shared by TERMINAL-TYPE and TERMINAL-SPEED
const (
	SubIs   byte = 0
	SubSend byte = 1
)

// Control characters handled by the byte parser
const (
	ctrlBell      byte = 7
	ctrlBackspace byte = 8
	ctrlVT        byte = 11
	ctrlFF        byte = 12
)
