package api

import (
	"net/http"

	"github.com/digiteinfotech/kairon/internal/dataset"
	"github.com/digiteinfotech/kairon/internal/models"
)

// saveHandler decodes one artifact and hands it to a processor write, used
// for both creates and updates.
func saveHandler[T any](w http.ResponseWriter, r *http.Request, save func(tenant, user string, v T) error, message string) {
	tenant := r.PathValue("bot")
	var v T
	if !decodeJSON(w, r, &v) {
		return
	}
	if err := save(tenant, actor(r), v); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, message, nil)
}

// listHandler renders every artifact of one kind.
func listHandler[T any](w http.ResponseWriter, r *http.Request, list func(tenant string) ([]T, error)) {
	items, err := list(r.PathValue("bot"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, nil, items)
}

// deleteHandler removes one artifact addressed by a path segment.
func deleteHandler(w http.ResponseWriter, r *http.Request, pathKey string, del func(tenant, user, name string) error, message string) {
	if err := del(r.PathValue("bot"), actor(r), r.PathValue(pathKey)); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, message, nil)
}

func (s *Server) createBotHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.processor.SeedTenant(r.PathValue("bot"), actor(r)); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, "Bot created", nil)
}

func (s *Server) deleteBotHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.processor.DeleteTenant(r.PathValue("bot"), actor(r)); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, "Bot deleted", nil)
}

func (s *Server) getSettingsHandler(w http.ResponseWriter, r *http.Request) {
	settings, err := s.processor.GetBotSettings(r.PathValue("bot"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, nil, settings)
}

func (s *Server) updateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	saveHandler(w, r, s.processor.UpdateBotSettings, "Settings updated")
}

func (s *Server) addIntentHandler(w http.ResponseWriter, r *http.Request) {
	saveHandler(w, r, s.processor.AddIntent, "Intent added")
}

func (s *Server) listIntentsHandler(w http.ResponseWriter, r *http.Request) {
	listHandler(w, r, s.processor.ListIntents)
}

func (s *Server) deleteIntentHandler(w http.ResponseWriter, r *http.Request) {
	deleteHandler(w, r, "name", s.processor.DeleteIntent, "Intent deleted")
}

func (s *Server) addTrainingExampleHandler(w http.ResponseWriter, r *http.Request) {
	saveHandler(w, r, s.processor.AddTrainingExample, "Training example added")
}

func (s *Server) listTrainingExamplesHandler(w http.ResponseWriter, r *http.Request) {
	examples, err := s.processor.ListTrainingExamples(r.PathValue("bot"), r.URL.Query().Get("intent"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, nil, examples)
}

// Training examples are addressed by their text, which may carry characters
// a path segment cannot, so deletion takes the text as a query parameter.
func (s *Server) deleteTrainingExampleHandler(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if text == "" {
		writeError(w, models.NewValidationError("text is required", "query", "text"))
		return
	}
	if err := s.processor.DeleteTrainingExample(r.PathValue("bot"), actor(r), text); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, "Training example deleted", nil)
}

func (s *Server) addEntityHandler(w http.ResponseWriter, r *http.Request) {
	saveHandler(w, r, s.processor.AddEntity, "Entity added")
}

func (s *Server) listEntitiesHandler(w http.ResponseWriter, r *http.Request) {
	listHandler(w, r, s.processor.ListEntities)
}

func (s *Server) deleteEntityHandler(w http.ResponseWriter, r *http.Request) {
	deleteHandler(w, r, "name", s.processor.DeleteEntity, "Entity deleted")
}

func (s *Server) addSlotHandler(w http.ResponseWriter, r *http.Request) {
	saveHandler(w, r, s.processor.AddSlot, "Slot added")
}

func (s *Server) updateSlotHandler(w http.ResponseWriter, r *http.Request) {
	saveHandler(w, r, s.processor.UpdateSlot, "Slot updated")
}

func (s *Server) listSlotsHandler(w http.ResponseWriter, r *http.Request) {
	listHandler(w, r, s.processor.ListSlots)
}

func (s *Server) deleteSlotHandler(w http.ResponseWriter, r *http.Request) {
	deleteHandler(w, r, "name", s.processor.DeleteSlot, "Slot deleted")
}

func (s *Server) addSlotMappingHandler(w http.ResponseWriter, r *http.Request) {
	saveHandler(w, r, s.processor.AddSlotMapping, "Slot mapping added")
}

func (s *Server) updateSlotMappingHandler(w http.ResponseWriter, r *http.Request) {
	saveHandler(w, r, s.processor.UpdateSlotMapping, "Slot mapping updated")
}

func (s *Server) listSlotMappingsHandler(w http.ResponseWriter, r *http.Request) {
	listHandler(w, r, s.processor.ListSlotMappings)
}

func (s *Server) deleteSlotMappingHandler(w http.ResponseWriter, r *http.Request) {
	deleteHandler(w, r, "slot", s.processor.DeleteSlotMapping, "Slot mapping deleted")
}

func (s *Server) addResponseHandler(w http.ResponseWriter, r *http.Request) {
	saveHandler(w, r, s.processor.AddResponse, "Utterance added")
}

func (s *Server) updateResponseHandler(w http.ResponseWriter, r *http.Request) {
	saveHandler(w, r, s.processor.UpdateResponse, "Utterance updated")
}

func (s *Server) listResponsesHandler(w http.ResponseWriter, r *http.Request) {
	listHandler(w, r, s.processor.ListResponses)
}

func (s *Server) deleteResponseHandler(w http.ResponseWriter, r *http.Request) {
	deleteHandler(w, r, "name", s.processor.DeleteResponse, "Utterance deleted")
}

func (s *Server) addStoryHandler(w http.ResponseWriter, r *http.Request) {
	saveHandler(w, r, s.processor.AddStory, "Story added")
}

func (s *Server) updateStoryHandler(w http.ResponseWriter, r *http.Request) {
	saveHandler(w, r, s.processor.UpdateStory, "Story updated")
}

func (s *Server) listStoriesHandler(w http.ResponseWriter, r *http.Request) {
	listHandler(w, r, s.processor.ListStories)
}

func (s *Server) deleteStoryHandler(w http.ResponseWriter, r *http.Request) {
	deleteHandler(w, r, "name", s.processor.DeleteStory, "Story deleted")
}

func (s *Server) addRuleHandler(w http.ResponseWriter, r *http.Request) {
	saveHandler(w, r, s.processor.AddRule, "Rule added")
}

func (s *Server) updateRuleHandler(w http.ResponseWriter, r *http.Request) {
	saveHandler(w, r, s.processor.UpdateRule, "Rule updated")
}

func (s *Server) listRulesHandler(w http.ResponseWriter, r *http.Request) {
	listHandler(w, r, s.processor.ListRules)
}

func (s *Server) deleteRuleHandler(w http.ResponseWriter, r *http.Request) {
	deleteHandler(w, r, "name", s.processor.DeleteRule, "Rule deleted")
}

func (s *Server) addMultiflowHandler(w http.ResponseWriter, r *http.Request) {
	saveHandler(w, r, s.processor.AddMultiflowStory, "Multiflow story added")
}

func (s *Server) updateMultiflowHandler(w http.ResponseWriter, r *http.Request) {
	saveHandler(w, r, s.processor.UpdateMultiflowStory, "Multiflow story updated")
}

func (s *Server) listMultiflowsHandler(w http.ResponseWriter, r *http.Request) {
	listHandler(w, r, s.processor.ListMultiflowStories)
}

func (s *Server) deleteMultiflowHandler(w http.ResponseWriter, r *http.Request) {
	deleteHandler(w, r, "name", s.processor.DeleteMultiflowStory, "Multiflow story deleted")
}

func (s *Server) addFormHandler(w http.ResponseWriter, r *http.Request) {
	saveHandler(w, r, s.processor.AddForm, "Form added")
}

func (s *Server) updateFormHandler(w http.ResponseWriter, r *http.Request) {
	saveHandler(w, r, s.processor.UpdateForm, "Form updated")
}

func (s *Server) listFormsHandler(w http.ResponseWriter, r *http.Request) {
	listHandler(w, r, s.processor.ListForms)
}

func (s *Server) deleteFormHandler(w http.ResponseWriter, r *http.Request) {
	deleteHandler(w, r, "name", s.processor.DeleteForm, "Form deleted")
}

func (s *Server) addActionHandler(w http.ResponseWriter, r *http.Request) {
	saveHandler(w, r, s.processor.AddAction, "Action added")
}

func (s *Server) updateActionHandler(w http.ResponseWriter, r *http.Request) {
	saveHandler(w, r, s.processor.UpdateAction, "Action updated")
}

func (s *Server) listActionsHandler(w http.ResponseWriter, r *http.Request) {
	actions, err := s.processor.ListActions(r.PathValue("bot"), models.ActionType(r.URL.Query().Get("type")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, nil, actions)
}

func (s *Server) deleteActionHandler(w http.ResponseWriter, r *http.Request) {
	deleteHandler(w, r, "name", s.processor.DeleteAction, "Action deleted")
}

func (s *Server) addCognitionSchemaHandler(w http.ResponseWriter, r *http.Request) {
	saveHandler(w, r, s.processor.AddCognitionSchema, "Collection schema added")
}

func (s *Server) listCognitionSchemasHandler(w http.ResponseWriter, r *http.Request) {
	listHandler(w, r, s.processor.ListCognitionSchemas)
}

func (s *Server) deleteCognitionSchemaHandler(w http.ResponseWriter, r *http.Request) {
	deleteHandler(w, r, "collection", s.processor.DeleteCognitionSchema, "Collection schema deleted")
}

func (s *Server) addCognitionDataHandler(w http.ResponseWriter, r *http.Request) {
	tenant := r.PathValue("bot")
	var data models.CognitionData
	if !decodeJSON(w, r, &data) {
		return
	}
	rowID, err := s.processor.AddCognitionData(tenant, actor(r), data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, "Record saved", map[string]string{"row_id": rowID})
}

func (s *Server) listCognitionDataHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := s.processor.ListCognitionData(r.PathValue("bot"), r.URL.Query().Get("collection"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, nil, rows)
}

func (s *Server) updateCognitionDataHandler(w http.ResponseWriter, r *http.Request) {
	var data models.CognitionData
	if !decodeJSON(w, r, &data) {
		return
	}
	if err := s.processor.UpdateCognitionData(r.PathValue("bot"), actor(r), r.PathValue("row"), data); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, "Record updated", nil)
}

func (s *Server) deleteCognitionDataHandler(w http.ResponseWriter, r *http.Request) {
	deleteHandler(w, r, "row", s.processor.DeleteCognitionData, "Record deleted")
}

func (s *Server) getConfigHandler(w http.ResponseWriter, r *http.Request) {
	config, err := s.processor.GetModelConfig(r.PathValue("bot"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, nil, config)
}

func (s *Server) updateConfigHandler(w http.ResponseWriter, r *http.Request) {
	saveHandler(w, r, func(tenant, user string, config dataset.ModelConfig) error {
		return s.processor.SaveModelConfig(tenant, user, config)
	}, "Config updated")
}

func (s *Server) getChatClientConfigHandler(w http.ResponseWriter, r *http.Request) {
	config, err := s.processor.GetChatClientConfig(r.PathValue("bot"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, nil, config)
}

func (s *Server) updateChatClientConfigHandler(w http.ResponseWriter, r *http.Request) {
	saveHandler(w, r, s.processor.SaveChatClientConfig, "Chat client config updated")
}
