package bot

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const (
	successMessageColour int = 0x28bd00
	infoMessageColour    int = 0x2a7fff
	warnMessageColour    int = 0xbdb900
	errorMessageColour   int = 0xbd1b00
)

//Discord rejects embeds with more fields than this
const maxEmbedFields = 25

//Response represents the result of a command which can be both communicated over discord and written to the log.
type Response interface {
	DiscordResponse() *discordgo.MessageSend
	WriteToLog()
}

//field is a single embed field
type field struct {
	name  string
	value string
}

//ResponseSuccess will be returned when a command has been successfully completed
type ResponseSuccess struct {
	//The base command name
	command string
	//The entire text contents of the message
	commandMsg string
	//What was done
	description string
	//The time the success was logged at
	timestamp time.Time
}

//DiscordResponse builds a MessageSend object which can be sent back to whoever sent a command message.
func (r ResponseSuccess) DiscordResponse() *discordgo.MessageSend {
	description := r.description
	if description == "" {
		description = fmt.Sprintf("Completed %v command successfully!", r.command)
	}
	return embedResponse("Success! \\o/", description, successMessageColour, r.timestamp, nil)
}

//WriteToLog dumps data on a discord command response to the log
func (r ResponseSuccess) WriteToLog() {
	logrus.Infof("%v Completed command %v successfully.", logLineLabel(r.timestamp), r.commandMsg)
}

//ResponseInfo will be returned by commands which display stored configuration
type ResponseInfo struct {
	//The entire text contents of the message
	commandMsg  string
	title       string
	description string
	fields      []field
	timestamp   time.Time
}

//DiscordResponse builds a MessageSend object which can be sent back to whoever sent a command message.
func (r ResponseInfo) DiscordResponse() *discordgo.MessageSend {
	return embedResponse(r.title, r.description, infoMessageColour, r.timestamp, r.fields)
}

//WriteToLog dumps data on a discord command response to the log
func (r ResponseInfo) WriteToLog() {
	logrus.Debugf("%v Displayed %v for command %v.", logLineLabel(r.timestamp), r.title, r.commandMsg)
}

//ResponsePartialSuccess will be returned when a command has executed but with issues
type ResponsePartialSuccess struct {
	//The base command name
	command string
	//The entire text contents of the message
	commandMsg string
	//A human-readable description of the issue
	description string
	//Fields which should be included in the embed
	data []field
	//The time the success was logged at
	timestamp time.Time
}

//DiscordResponse builds a MessageSend object which can be sent back to whoever sent a command message.
func (r ResponsePartialSuccess) DiscordResponse() *discordgo.MessageSend {
	description := fmt.Sprintf("Completed %v command but with errors: \n%v", r.command, r.description)
	return embedResponse("Partial success...", description, warnMessageColour, r.timestamp, r.data)
}

//WriteToLog dumps data on a discord command response to the log
func (r ResponsePartialSuccess) WriteToLog() {
	logrus.Warnf("%v Completed command %v but with errors: %v.", logLineLabel(r.timestamp), r.commandMsg, r.data)
}

//ResponseSyntaxError will be returned when the command could not be understood
type ResponseSyntaxError struct {
	//The base command name
	command string
	//The entire text contents of the message
	commandMsg string
	//A human-readable description of the issue
	description string
	//A description of the correct syntax
	syntax string
	//The time the error was logged at
	timestamp time.Time
}

//DiscordResponse builds a MessageSend object which can be sent back to whoever sent a command message.
func (r ResponseSyntaxError) DiscordResponse() *discordgo.MessageSend {
	description := fmt.Sprintf("Sorry, but I couldn't understand that %v command: \n%v", r.command, r.description)
	fields := []field{
		{"Your command", r.commandMsg},
		{"Correct syntax", r.syntax},
	}
	return embedResponse("Uh-oh, there was something wrong with that command", description, errorMessageColour, r.timestamp, fields)
}

//WriteToLog dumps data on a discord command response to the log
func (r ResponseSyntaxError) WriteToLog() {
	logrus.Infof("%v Syntax error in command %v: %v", logLineLabel(r.timestamp), r.commandMsg, r.description)
}

//ResponseRejected will be returned when the command was understood but the data it refers to was not acceptable
type ResponseRejected struct {
	//The base command name
	command string
	//The entire text contents of the message
	commandMsg string
	//A human-readable description of the issue
	description string
	//The time the error was logged at
	timestamp time.Time
}

//DiscordResponse builds a MessageSend object which can be sent back to whoever sent a command message.
func (r ResponseRejected) DiscordResponse() *discordgo.MessageSend {
	description := fmt.Sprintf("Sorry, but there was a problem with the data you supplied for the %v command: \n%v", r.command, r.description)
	return embedResponse("Uh-oh, I can't do that", description, errorMessageColour, r.timestamp, nil)
}

//WriteToLog dumps data on a discord command response to the log
func (r ResponseRejected) WriteToLog() {
	logrus.Infof("%v Rejected command %v: %v", logLineLabel(r.timestamp), r.commandMsg, r.description)
}

//ResponseInternalError will be returned when there was some kind of error within the bot or when communicating with
//APIs
type ResponseInternalError struct {
	//The base command name
	command string
	//The entire text contents of the message
	commandMsg string
	//The error which caused the failure
	err error
	//The time the error was logged at
	timestamp time.Time
}

//DiscordResponse builds a MessageSend object which can be sent back to whoever sent a command message.
func (r ResponseInternalError) DiscordResponse() *discordgo.MessageSend {
	description := fmt.Sprintf("Oops! I encountered an unexpected error whilst running your %v command. Please try again later or file a bug report.\n%v", r.command, writeLogRef(r.timestamp))
	return embedResponse("Oops, something went wrong ;w;", description, errorMessageColour, r.timestamp, nil)
}

//WriteToLog dumps data on a discord command response to the log
func (r ResponseInternalError) WriteToLog() {
	logrus.Errorf("%v Internal error whilst executing command %v: %v", logLineLabel(r.timestamp), r.commandMsg, r.err)
}

//ResponseNotAllowed will be returned when a user tried to run a command that they do not have the correct role for
type ResponseNotAllowed struct {
	//The base command name
	command string
	//The entire text contents of the message
	commandMsg string
	//A human-readable description of the issue
	description string
	//The time the error was logged at
	timestamp time.Time
}

//DiscordResponse builds a MessageSend object which can be sent back to whoever sent a command message.
func (r ResponseNotAllowed) DiscordResponse() *discordgo.MessageSend {
	fields := []field{
		{"Reason", r.description},
		{"Command", r.command},
	}
	return embedResponse("That's not allowed", "I'm sorry, I can't let you do that...", errorMessageColour, r.timestamp, fields)
}

//WriteToLog dumps data on a discord command response to the log
func (r ResponseNotAllowed) WriteToLog() {
	logrus.Infof("%v Rejected command `%v` as the sender did not have the correct priveliges | description: %v", logLineLabel(r.timestamp), r.commandMsg, r.description)
}

//ResponseFeatureNotEnabled will be returned when a user tried to run a command which requires a disabled module
type ResponseFeatureNotEnabled struct {
	//The base command name
	command string
	//The entire text contents of the message
	commandMsg string
	//The name of the feature which was disabled
	disabledFeature string
	//The time the error was logged at
	timestamp time.Time
}

//DiscordResponse builds a MessageSend object which can be sent back to whoever sent a command message.
func (r ResponseFeatureNotEnabled) DiscordResponse() *discordgo.MessageSend {
	description := fmt.Sprintf("Sorry, but the '%v' command requires a feature which is not currently running.", r.command)
	fields := []field{{"Required Feature(s)", r.disabledFeature}}
	return embedResponse("Required feature is not activated", description, errorMessageColour, r.timestamp, fields)
}

//WriteToLog dumps data on a discord command response to the log
func (r ResponseFeatureNotEnabled) WriteToLog() {
	logrus.Infof("%v Rejected command `%v` as required feature %v is not enabled", logLineLabel(r.timestamp), r.commandMsg, r.disabledFeature)
}

/////////////////////
//Utility Functions//
/////////////////////
func writeLogRef(t time.Time) string {
	return fmt.Sprintf("More details can be found on log line %v", t.UnixNano())
}

func logLineLabel(t time.Time) string {
	return fmt.Sprintf("#%v# | ", t.UnixNano())
}

func embedResponse(title, description string, colour int, t time.Time, fields []field) *discordgo.MessageSend {
	embed := discordgo.MessageEmbed{
		Title:       title,
		Type:        discordgo.EmbedTypeRich,
		Description: truncate(description, 4096),
		Timestamp:   t.Format(time.RFC3339),
		Color:       colour,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Log ID: %d", t.UnixNano()),
		},
		Fields: toEmbedFields(fields),
	}
	return &discordgo.MessageSend{
		Embeds:          []*discordgo.MessageEmbed{&embed},
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	}
}

func toEmbedFields(fields []field) []*discordgo.MessageEmbedField {
	var res []*discordgo.MessageEmbedField
	for i, f := range fields {
		if i == maxEmbedFields {
			break
		}
		value := f.value
		if value == "" {
			value = "-"
		}
		res = append(res, &discordgo.MessageEmbedField{
			Name:   truncate(f.name, 256),
			Value:  truncate(value, 1024),
			Inline: false,
		})
	}
	return res
}
