// constants.go lists the MAPI property identifiers and value types the
// builder reads from a .msg container.

package msg

// MAPI property value types.
const (
	TypeInt32   = 0x0003
	TypeBoolean = 0x000B
	TypeObject  = 0x000D
	TypeString8 = 0x001E
	TypeUnicode = 0x001F
	TypeTime    = 0x0040
	TypeBinary  = 0x0102
)

// Message-level property IDs.
const (
	PropMessageClass  = 0x001A // PR_MESSAGE_CLASS
	PropSubject       = 0x0037 // PR_SUBJECT
	PropClientSubmit  = 0x0039 // PR_CLIENT_SUBMIT_TIME
	PropSentRepName   = 0x0042 // PR_SENT_REPRESENTING_NAME
	PropSentRepEmail  = 0x0065 // PR_SENT_REPRESENTING_EMAIL_ADDRESS
	PropSenderName    = 0x0C1A // PR_SENDER_NAME
	PropSenderEmail   = 0x0C1F // PR_SENDER_EMAIL_ADDRESS
	PropDisplayCc     = 0x0E03 // PR_DISPLAY_CC
	PropDisplayTo     = 0x0E04 // PR_DISPLAY_TO
	PropDeliveryTime  = 0x0E06 // PR_MESSAGE_DELIVERY_TIME
	PropBody          = 0x1000 // PR_BODY
	PropRtfCompressed = 0x1009 // PR_RTF_COMPRESSED
	PropBodyHTML      = 0x1013 // PR_BODY_HTML / PR_HTML
)

// Attachment property IDs.
const (
	PropAttachData      = 0x3701 // PR_ATTACH_DATA_BIN / PR_ATTACH_DATA_OBJ
	PropAttachExtension = 0x3703 // PR_ATTACH_EXTENSION
	PropAttachFilename  = 0x3704 // PR_ATTACH_FILENAME (8.3)
	PropAttachMethod    = 0x3705 // PR_ATTACH_METHOD
	PropAttachLongFname = 0x3707 // PR_ATTACH_LONG_FILENAME
	PropAttachMimeTag   = 0x370E // PR_ATTACH_MIME_TAG
	PropAttachContentID = 0x3712 // PR_ATTACH_CONTENT_ID
)

// Recipient property IDs.
const (
	PropRecipientType = 0x0C15 // PR_RECIPIENT_TYPE
	PropDisplayName   = 0x3001 // PR_DISPLAY_NAME
	PropEmailAddress  = 0x3003 // PR_EMAIL_ADDRESS
	PropSmtpAddress   = 0x39FE // PR_SMTP_ADDRESS
)

// PR_ATTACH_METHOD values.
const (
	AttachByValue     = 1
	AttachEmbeddedMsg = 5
	AttachOLE         = 6
)

// PR_RECIPIENT_TYPE values.
const (
	RecipientTo  = 1
	RecipientCc  = 2
	RecipientBcc = 3
)

// Storage and stream names inside the container.
const (
	streamPrefix      = "__substg1.0_"
	propertiesStream  = "__properties_version1.0"
	attachStorePrefix = "__attach_version1.0_#"
	recipStorePrefix  = "__recip_version1.0_#"
	nameidStore       = "__nameid_version1.0"
)

// Fixed-record header sizes of the properties stream, by storage kind.
const (
	propsHeaderTop      = 32 // top-level message
	propsHeaderEmbedded = 24 // embedded message storage
	propsHeaderChild    = 8  // attachment and recipient storages
)
