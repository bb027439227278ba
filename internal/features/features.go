// Package features is the catalog of tutoring personas. Each feature maps a
// stable id to display metadata and the system prompt used for model calls.
package features

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Config describes one feature.
type Config struct {
	Name         string `json:"name" yaml:"name"`
	Description  string `json:"description" yaml:"description"`
	Prompt       string `json:"prompt" yaml:"prompt"`
	SystemPrompt string `json:"system_prompt" yaml:"system_prompt"`
}

// Catalog resolves feature ids. Builtins are always present; custom entries
// loaded from a YAML file extend the set but may not shadow builtins.
type Catalog struct {
	mu     sync.RWMutex
	custom map[string]Config
}

func NewCatalog() *Catalog {
	return &Catalog{custom: map[string]Config{}}
}

// Resolve returns the feature config for an id.
func (c *Catalog) Resolve(id string) (Config, bool) {
	id = strings.TrimSpace(id)
	if cfg, ok := builtin[id]; ok {
		return cfg, true
	}
	if c == nil {
		return Config{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	cfg, ok := c.custom[id]
	return cfg, ok
}

// Has reports whether the id resolves. Matches history.FeatureResolver.
func (c *Catalog) Has(id string) bool {
	_, ok := c.Resolve(id)
	return ok
}

// IDs returns every feature id, builtins first, each block sorted.
func (c *Catalog) IDs() []string {
	out := make([]string, 0, len(builtin))
	for id := range builtin {
		out = append(out, id)
	}
	sort.Strings(out)

	if c != nil {
		c.mu.RLock()
		custom := make([]string, 0, len(c.custom))
		for id := range c.custom {
			custom = append(custom, id)
		}
		c.mu.RUnlock()
		sort.Strings(custom)
		out = append(out, custom...)
	}
	return out
}

// DefaultTitle is the templated title given to a fresh thread.
func DefaultTitle(id string) string {
	return fmt.Sprintf("New %s Chat", strings.TrimSpace(id))
}

var builtin = map[string]Config{
	"chat": {
		Name:         "General Chat",
		Description:  "Have a conversation with your AI tutor",
		Prompt:       "Ask me anything you want to learn about!",
		SystemPrompt: "You are Vidya AI, a helpful and knowledgeable AI tutor. Provide clear, educational responses and encourage learning.",
	},
	"summarize": {
		Name:         "Summarize",
		Description:  "Get concise summaries of any content",
		Prompt:       "Share any text, article, or topic you want me to summarize.",
		SystemPrompt: "You are an expert at creating clear, concise summaries. Extract key points and present them in an organized, easy-to-understand format.",
	},
	"flashcards": {
		Name:         "Flashcards",
		Description:  "Generate flashcards for any topic",
		Prompt:       "Tell me what topic you want to create flashcards for.",
		SystemPrompt: "Create educational flashcards with questions on one side and answers on the other. Format them clearly and make them effective for studying.",
	},
	"quiz": {
		Name:         "Quiz Me",
		Description:  "Test your knowledge with custom quizzes",
		Prompt:       "What subject or topic would you like to be quizzed on?",
		SystemPrompt: "Create engaging quizzes with multiple choice, true/false, and short answer questions. Provide explanations for correct answers.",
	},
	"eli5": {
		Name:         "Explain Like I'm 5",
		Description:  "Get simple explanations for complex topics",
		Prompt:       "What complex topic would you like me to explain simply?",
		SystemPrompt: "Explain complex topics in very simple terms that a 5-year-old could understand. Use analogies, simple language, and relatable examples.",
	},
	"studyplan": {
		Name:         "Study Plan",
		Description:  "Create personalized study schedules",
		Prompt:       "Tell me what you want to study and your timeline.",
		SystemPrompt: "Create detailed, realistic study plans with specific goals, timelines, and milestones. Break down complex subjects into manageable chunks.",
	},
	"codeexplain": {
		Name:         "Code Explanation",
		Description:  "Understand code and programming concepts",
		Prompt:       "Share any code you want me to explain or ask programming questions.",
		SystemPrompt: "Explain code clearly, breaking down syntax, logic, and concepts. Provide examples and suggest improvements when helpful.",
	},
	"mathsolver": {
		Name:         "Math Solver",
		Description:  "Solve math problems step by step",
		Prompt:       "Share any math problem you need help with.",
		SystemPrompt: "Solve math problems step-by-step with clear explanations. Show your work and explain the reasoning behind each step.",
	},
	"labs": {
		Name:         "AI-Powered Labs",
		Description:  "Interactive learning experiments",
		Prompt:       "What kind of experiment or lab would you like to explore?",
		SystemPrompt: "Design interactive learning experiments and labs. Provide hands-on activities and explain the science behind them.",
	},
	"sandbox": {
		Name:         "Code Sandbox",
		Description:  "Practice coding in a safe environment",
		Prompt:       "What programming language or concept do you want to practice?",
		SystemPrompt: "Help users practice coding by providing exercises, challenges, and feedback. Create a supportive learning environment.",
	},
	"whatif": {
		Name:         "What-If Explorer",
		Description:  "Explore hypothetical scenarios",
		Prompt:       "What hypothetical scenario would you like to explore?",
		SystemPrompt: "Explore hypothetical scenarios with scientific accuracy. Explain cause and effect relationships and potential outcomes.",
	},
	"knowledge": {
		Name:         "Knowledge Builder",
		Description:  "Build comprehensive understanding of topics",
		Prompt:       "What topic do you want to build deep knowledge about?",
		SystemPrompt: "Help build comprehensive knowledge by connecting concepts, providing context, and creating learning pathways.",
	},
	"textbook": {
		Name:         "Build Textbook",
		Description:  "Create structured learning materials",
		Prompt:       "What subject would you like me to create a textbook chapter for?",
		SystemPrompt: "Create well-structured educational content like textbook chapters with clear sections, examples, and exercises.",
	},
	"motivation": {
		Name:         "Motivation Mode",
		Description:  "Stay motivated and focused on learning",
		Prompt:       "Tell me about your learning goals or challenges.",
		SystemPrompt: "Provide motivation, encouragement, and practical tips for staying focused on learning goals. Be supportive and inspiring.",
	},
	"mindmap": {
		Name:         "Mind Map",
		Description:  "Visualize concepts and connections",
		Prompt:       "What topic would you like me to create a mind map for?",
		SystemPrompt: "Create detailed mind maps showing relationships between concepts. Use clear hierarchies and connections.",
	},
	"debate": {
		Name:         "Debate Coach",
		Description:  "Practice arguments and critical thinking",
		Prompt:       "What topic would you like to debate or analyze?",
		SystemPrompt: "Help practice debate skills by presenting different perspectives, teaching argumentation, and encouraging critical thinking.",
	},
	"essay": {
		Name:         "Essay Outliner",
		Description:  "Structure and plan your essays",
		Prompt:       "What essay topic do you need help outlining?",
		SystemPrompt: "Help create detailed essay outlines with clear thesis statements, supporting arguments, and logical structure.",
	},
	"career": {
		Name:         "Career Path",
		Description:  "Explore career options and planning",
		Prompt:       "What career field or path are you interested in exploring?",
		SystemPrompt: "Provide comprehensive career guidance including required skills, education paths, job market insights, and growth opportunities.",
	},
	"language": {
		Name:         "Language Buddy",
		Description:  "Practice and learn languages",
		Prompt:       "What language would you like to practice or learn?",
		SystemPrompt: "Help with language learning through conversation practice, grammar explanations, vocabulary building, and cultural context.",
	},
	"visual": {
		Name:         "Visual Explainer",
		Description:  "Create visual descriptions and diagrams",
		Prompt:       "What concept would you like me to explain visually?",
		SystemPrompt: "Create detailed visual descriptions, diagrams, and step-by-step visual explanations of concepts.",
	},
	"memory": {
		Name:         "Memory Palace",
		Description:  "Learn memory techniques and mnemonics",
		Prompt:       "What information do you need help memorizing?",
		SystemPrompt: "Teach memory techniques like memory palaces, mnemonics, and association methods. Create memorable learning aids.",
	},
	"exam": {
		Name:         "Exam Simulator",
		Description:  "Practice with realistic exam conditions",
		Prompt:       "What exam or test are you preparing for?",
		SystemPrompt: "Create realistic exam simulations with time constraints, varied question types, and detailed feedback on performance.",
	},
	"projects": {
		Name:         "Project Ideas",
		Description:  "Generate creative project ideas",
		Prompt:       "What subject or skill do you want project ideas for?",
		SystemPrompt: "Generate creative, educational project ideas with clear objectives, required materials, and step-by-step guidance.",
	},
	"review": {
		Name:         "Peer Review",
		Description:  "Get feedback on your work",
		Prompt:       "Share your work for constructive feedback and review.",
		SystemPrompt: "Provide constructive, detailed feedback on submitted work. Focus on strengths, areas for improvement, and specific suggestions.",
	},
	"research": {
		Name:         "Research Assistant",
		Description:  "Help with research and fact-finding",
		Prompt:       "What topic would you like me to research for you?",
		SystemPrompt: "You are a research assistant. Help users find accurate information, cite sources, and organize research findings effectively.",
	},
	"translate": {
		Name:         "Smart Translator",
		Description:  "Translate and explain languages",
		Prompt:       "What would you like me to translate or explain?",
		SystemPrompt: "Provide accurate translations with cultural context and explanations of nuances between languages.",
	},
	"creative": {
		Name:         "Creative Writing",
		Description:  "Boost creativity and writing skills",
		Prompt:       "What creative writing project can I help you with?",
		SystemPrompt: "Help with creative writing including stories, poems, scripts, and creative exercises. Provide inspiration and feedback.",
	},
	"homework": {
		Name:         "Homework Helper",
		Description:  "Get help with assignments",
		Prompt:       "What homework assignment do you need help with?",
		SystemPrompt: "Help with homework by providing guidance, explanations, and step-by-step solutions without doing the work for the student.",
	},
	"presentation": {
		Name:         "Presentation Builder",
		Description:  "Create compelling presentations",
		Prompt:       "What presentation do you need to create?",
		SystemPrompt: "Help create structured, engaging presentations with clear outlines, key points, and visual suggestions.",
	},
	"notes": {
		Name:         "Smart Notes",
		Description:  "Organize and enhance your notes",
		Prompt:       "Share your notes or tell me what you want to take notes on.",
		SystemPrompt: "Help organize, structure, and enhance notes. Create summaries, highlight key points, and suggest improvements.",
	},
	"schedule": {
		Name:         "Schedule Optimizer",
		Description:  "Optimize your time and schedule",
		Prompt:       "What scheduling challenge can I help you with?",
		SystemPrompt: "Help optimize schedules, manage time effectively, and balance different priorities and commitments.",
	},
	"goals": {
		Name:         "Goal Setting",
		Description:  "Set and track learning goals",
		Prompt:       "What goals would you like to set or work on?",
		SystemPrompt: "Help set SMART goals, create action plans, and provide strategies for achieving learning and personal objectives.",
	},
	"habits": {
		Name:         "Habit Builder",
		Description:  "Build positive learning habits",
		Prompt:       "What habits would you like to develop or improve?",
		SystemPrompt: "Help build positive habits with practical strategies, tracking methods, and motivation techniques.",
	},
	"focus": {
		Name:         "Focus Coach",
		Description:  "Improve concentration and focus",
		Prompt:       "What focus or concentration challenges are you facing?",
		SystemPrompt: "Provide techniques and strategies to improve focus, manage distractions, and enhance concentration for learning.",
	},
	"brainstorm": {
		Name:         "Brainstorm Buddy",
		Description:  "Generate and organize ideas",
		Prompt:       "What would you like to brainstorm about?",
		SystemPrompt: "Help generate creative ideas, organize thoughts, and facilitate productive brainstorming sessions.",
	},
	"analyze": {
		Name:         "Data Analyzer",
		Description:  "Analyze data and information",
		Prompt:       "What data or information would you like me to analyze?",
		SystemPrompt: "Help analyze data, identify patterns, draw conclusions, and present findings in clear, understandable ways.",
	},
	"compare": {
		Name:         "Comparison Tool",
		Description:  "Compare options and alternatives",
		Prompt:       "What would you like me to compare for you?",
		SystemPrompt: "Provide detailed comparisons with pros and cons, helping users make informed decisions between options.",
	},
	"timeline": {
		Name:         "Timeline Creator",
		Description:  "Create historical and project timelines",
		Prompt:       "What timeline would you like me to create?",
		SystemPrompt: "Create detailed timelines for historical events, project planning, or personal milestones with key dates and descriptions.",
	},
	"dictionary": {
		Name:         "Smart Dictionary",
		Description:  "Define words with context and examples",
		Prompt:       "What word or term would you like me to explain?",
		SystemPrompt: "Provide comprehensive word definitions with etymology, usage examples, synonyms, and contextual explanations.",
	},
	"formula": {
		Name:         "Formula Helper",
		Description:  "Explain and apply formulas",
		Prompt:       "What formula do you need help with?",
		SystemPrompt: "Explain formulas clearly, show how to apply them, provide examples, and help with problem-solving.",
	},
	"citation": {
		Name:         "Citation Generator",
		Description:  "Generate proper citations and references",
		Prompt:       "What sources do you need help citing?",
		SystemPrompt: "Help generate proper citations in various formats (APA, MLA, Chicago, etc.) and explain citation rules.",
	},
	"proofread": {
		Name:         "Proofreader",
		Description:  "Check grammar, style, and clarity",
		Prompt:       "Share the text you'd like me to proofread.",
		SystemPrompt: "Provide thorough proofreading with corrections for grammar, spelling, style, and suggestions for clarity and flow.",
	},
	"interview": {
		Name:         "Interview Coach",
		Description:  "Practice interviews and improve skills",
		Prompt:       "What type of interview would you like to practice?",
		SystemPrompt: "Help prepare for interviews with practice questions, feedback, and tips for improving interview performance.",
	},
	"negotiation": {
		Name:         "Negotiation Trainer",
		Description:  "Learn negotiation skills and strategies",
		Prompt:       "What negotiation scenario would you like to practice?",
		SystemPrompt: "Teach negotiation skills, provide practice scenarios, and offer strategies for effective communication and deal-making.",
	},
	"leadership": {
		Name:         "Leadership Coach",
		Description:  "Develop leadership skills",
		Prompt:       "What leadership challenge or skill would you like to work on?",
		SystemPrompt: "Help develop leadership skills with practical advice, scenarios, and strategies for effective team management and inspiration.",
	},
	"teamwork": {
		Name:         "Teamwork Facilitator",
		Description:  "Improve collaboration and team skills",
		Prompt:       "What teamwork challenge can I help you with?",
		SystemPrompt: "Provide strategies for effective teamwork, communication, conflict resolution, and collaborative problem-solving.",
	},
}
