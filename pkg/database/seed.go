package database

import (
	"time"

	"corp_learning_backend/internal/model"
	"corp_learning_backend/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// 种子账号的默认密码
const SeedPassword = "password123"

func strPtr(s string) *string { return &s }

func seedUsers() []model.User {
	return []model.User{
		{Entity: model.Entity{ID: "user-1"}, Name: "John Doe", Email: "john@example.com", Role: model.Learner},
		{Entity: model.Entity{ID: "user-2"}, Name: "Jane Smith", Email: "jane@example.com", Role: model.Learner},
		{Entity: model.Entity{ID: "user-3"}, Name: "Admin User", Email: "admin@example.com", Role: model.Admin},
	}
}

func seedLesson(id, title string, typ model.LessonType, content string, duration, pos int) model.Lesson {
	return model.Lesson{
		Entity:   model.Entity{ID: id},
		Title:    title,
		Type:     typ,
		Content:  content,
		Duration: duration,
		Position: pos,
	}
}

func seedCourses() []model.Course {
	return []model.Course{
		{
			Entity:          model.Entity{ID: "course-1"},
			Title:           "React Fundamentals",
			Description:     "Learn the core concepts of React and build interactive UIs with this comprehensive introduction to React.",
			Thumbnail:       "https://images.unsplash.com/photo-1633356122544-f134324a6cee?q=80&w=640&auto=format&fit=crop",
			InstructorName:  "Alex Johnson",
			InstructorTitle: "Senior React Developer",
			Duration:        320,
			Modules: []model.Module{
				{
					Entity:      model.Entity{ID: "module-1-1"},
					Title:       "Introduction to React",
					Description: "Learn the basics of React and its core concepts",
					Position:    1,
					Lessons: []model.Lesson{
						seedLesson("lesson-1-1-1", "What is React?", model.LessonVideo, "https://www.youtube.com/embed/Tn6-PIqc4UM", 15, 1),
						seedLesson("lesson-1-1-2", "Setting Up Your Development Environment", model.LessonText,
							"<h2>Development Environment Setup</h2><p>In this lesson, we'll install Node.js, npm, and create our first React application using Create React App.</p>", 20, 2),
					},
				},
				{
					Entity:      model.Entity{ID: "module-1-2"},
					Title:       "React Components",
					Description: "Understand the different types of components and how to use them",
					Position:    2,
					Lessons: []model.Lesson{
						seedLesson("lesson-1-2-1", "Functional Components", model.LessonVideo, "https://www.youtube.com/embed/Cla1WwguArA", 18, 1),
						seedLesson("lesson-1-2-2", "Class Components", model.LessonVideo, "https://www.youtube.com/embed/rJsNrMRpgCk", 22, 2),
						seedLesson("lesson-1-2-3", "Props and State", model.LessonPDF, "https://mozilla.github.io/pdf.js/web/viewer.html", 25, 3),
					},
				},
			},
		},
		{
			Entity:          model.Entity{ID: "course-2"},
			Title:           "Advanced TypeScript",
			Description:     "Take your TypeScript skills to the next level with advanced types, decorators, and best practices.",
			Thumbnail:       "https://images.unsplash.com/photo-1555066931-4365d14bab8c?q=80&w=640&auto=format&fit=crop",
			InstructorName:  "Maria Garcia",
			InstructorTitle: "TypeScript Specialist",
			Duration:        480,
			Modules: []model.Module{
				{
					Entity:      model.Entity{ID: "module-2-1"},
					Title:       "TypeScript Fundamentals Recap",
					Description: "Quick review of TypeScript basics",
					Position:    1,
					Lessons: []model.Lesson{
						seedLesson("lesson-2-1-1", "Basic Types and Interfaces", model.LessonText,
							"<h2>TypeScript Basics Review</h2><p>This lesson provides a quick refresher on TypeScript's basic types and interfaces.</p>", 30, 1),
					},
				},
			},
		},
		{
			Entity:          model.Entity{ID: "course-3"},
			Title:           "JavaScript Design Patterns",
			Description:     "Understand and implement common design patterns in JavaScript to write maintainable, efficient code.",
			Thumbnail:       "https://images.unsplash.com/photo-1627398242454-45a1465c2479?q=80&w=640&auto=format&fit=crop",
			InstructorName:  "James Wilson",
			InstructorTitle: "JavaScript Architect",
			Duration:        360,
		},
		{
			Entity:          model.Entity{ID: "course-4"},
			Title:           "RESTful API Development",
			Description:     "Learn how to design, develop, and test RESTful APIs using modern best practices.",
			Thumbnail:       "https://images.unsplash.com/photo-1558494949-ef010cbdcc31?q=80&w=640&auto=format&fit=crop",
			InstructorName:  "Emma Davis",
			InstructorTitle: "Backend Developer",
			Duration:        420,
		},
	}
}

func seedAssessments() []model.Assessment {
	return []model.Assessment{
		{
			Entity:           model.Entity{ID: "assessment-1"},
			Title:            "React Fundamentals Quiz",
			Description:      "Test your knowledge of basic React concepts, components, and state management.",
			TimeLimit:        30,
			PassingScore:     70,
			TotalQuestions:   10,
			ShuffleQuestions: true,
			CourseID:         strPtr("course-1"),
		},
		{
			Entity:           model.Entity{ID: "assessment-2"},
			Title:            "Advanced TypeScript Assessment",
			Description:      "Demonstrate your understanding of advanced TypeScript features and patterns.",
			TimeLimit:        45,
			PassingScore:     75,
			TotalQuestions:   15,
			ShuffleQuestions: true,
			CourseID:         strPtr("course-2"),
		},
	}
}

func seedQuestions() []model.Question {
	return []model.Question{
		{
			Entity:       model.Entity{ID: "question-1"},
			AssessmentID: "assessment-1",
			Text:         "What is the correct way to create a functional component in React?",
			Type:         model.SingleChoice,
			Options: []model.Option{
				{ID: "q1-opt1", Text: "function MyComponent() { return <div>Hello</div>; }", IsCorrect: true},
				{ID: "q1-opt2", Text: "const MyComponent = function() { return <div>Hello</div>; }"},
				{ID: "q1-opt3", Text: "class MyComponent { render() { return <div>Hello</div>; } }"},
				{ID: "q1-opt4", Text: "const MyComponent = () => <div>Hello</div>;"},
			},
			Explanation: "Both functional and arrow function syntaxes are valid ways to create functional components in React.",
			Position:    1,
		},
		{
			Entity:       model.Entity{ID: "question-2"},
			AssessmentID: "assessment-1",
			Text:         "Which hook would you use to perform side effects in a functional component?",
			Type:         model.SingleChoice,
			Options: []model.Option{
				{ID: "q2-opt1", Text: "useState"},
				{ID: "q2-opt2", Text: "useEffect", IsCorrect: true},
				{ID: "q2-opt3", Text: "useContext"},
				{ID: "q2-opt4", Text: "useReducer"},
			},
			Explanation: "useEffect is the React Hook designed specifically for handling side effects like data fetching, subscriptions, or DOM manipulations.",
			Position:    2,
		},
	}
}

func seedGeneratedQuestions() []model.GeneratedQuestion {
	return []model.GeneratedQuestion{
		{
			Entity:   model.Entity{ID: "ai-question-1"},
			Text:     "Which of these is NOT a feature of React?",
			Type:     model.SingleChoice,
			Options: []model.Option{
				{ID: "ai-q1-opt1", Text: "Virtual DOM"},
				{ID: "ai-q1-opt2", Text: "Two-way data binding", IsCorrect: true},
				{ID: "ai-q1-opt3", Text: "Component-based architecture"},
				{ID: "ai-q1-opt4", Text: "JSX syntax"},
			},
			Status:          model.ReviewPending,
			Source:          model.SourceDocument,
			SourceReference: "React Fundamentals course material",
			Explanation:     "React uses a unidirectional data flow (one-way data binding), not two-way data binding which is a feature of frameworks like Angular.",
			CourseID:        strPtr("course-1"),
			AssessmentID:    strPtr("assessment-1"),
		},
		{
			Entity:   model.Entity{ID: "ai-question-2"},
			Text:     "When using TypeScript with React, which type represents a React functional component that doesn't accept any props?",
			Type:     model.SingleChoice,
			Options: []model.Option{
				{ID: "ai-q2-opt1", Text: "React.Component"},
				{ID: "ai-q2-opt2", Text: "React.FunctionComponent"},
				{ID: "ai-q2-opt3", Text: "React.FC", IsCorrect: true},
				{ID: "ai-q2-opt4", Text: "React.StatelessComponent"},
			},
			Status:          model.ReviewPending,
			Source:          model.SourceText,
			SourceReference: "Advanced TypeScript module content",
			Explanation:     "React.FC (or React.FunctionalComponent) is the type for a functional component in TypeScript. When used without generic parameters, it represents a component that doesn't accept any props.",
			CourseID:        strPtr("course-2"),
			AssessmentID:    strPtr("assessment-2"),
		},
	}
}

func seedAttemptRecords() []model.AttemptRecord {
	day := func(s string) time.Time {
		t, _ := time.Parse("2006-01-02", s)
		return t
	}
	rec := func(id, user, assessment string, correct, total, score int, passing int, date string) model.AttemptRecord {
		passed := score >= passing
		return model.AttemptRecord{
			Entity:         model.Entity{ID: id},
			UserID:         user,
			AssessmentID:   assessment,
			Score:          score,
			CorrectAnswers: correct,
			TotalQuestions: total,
			IsPassed:       passed,
			Feedback:       model.FeedbackFor(passed),
			StartedAt:      day(date),
			CompletedAt:    day(date).Add(20 * time.Minute),
			Answers:        []model.Answer{},
			Details:        []model.QuestionDetail{},
		}
	}
	return []model.AttemptRecord{
		rec("attempt-1", "user-1", "assessment-1", 8, 10, 80, 70, "2023-04-20"),
		rec("attempt-2", "user-2", "assessment-1", 3, 4, 75, 70, "2023-04-21"),
		rec("attempt-3", "user-1", "assessment-2", 13, 20, 65, 75, "2023-04-22"),
	}
}

// Seed 首次启动时写入演示数据；已有课程时跳过
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Course{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Log.Debug("Seed skipped, catalog already present", zap.Int64("courses", count))
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		users := seedUsers()
		for i := range users {
			users[i].Password = string(hash)
		}
		courses := seedCourses()
		assessments := seedAssessments()
		questions := seedQuestions()
		generated := seedGeneratedQuestions()
		records := seedAttemptRecords()

		for _, batch := range []interface{}{&users, &courses, &assessments, &questions, &generated, &records} {
			if err := tx.Create(batch).Error; err != nil {
				return err
			}
		}

		// user-1 的学习进度与原始演示数据一致
		now := time.Now()
		progress := []model.LessonCompletion{
			{UserID: "user-1", CourseID: "course-1", ModuleID: "module-1-1", LessonID: "lesson-1-1-1", CompletedAt: now},
			{UserID: "user-1", CourseID: "course-1", ModuleID: "module-1-1", LessonID: "lesson-1-1-2", CompletedAt: now},
			{UserID: "user-1", CourseID: "course-1", ModuleID: "module-1-2", LessonID: "lesson-1-2-1", CompletedAt: now},
		}
		if err := tx.Create(&progress).Error; err != nil {
			return err
		}
		enrollments := []model.Enrollment{
			{UserID: "user-1", CourseID: "course-1", EnrolledAt: now},
			{UserID: "user-1", CourseID: "course-2", EnrolledAt: now},
			{UserID: "user-2", CourseID: "course-1", EnrolledAt: now},
		}
		if err := tx.Create(&enrollments).Error; err != nil {
			return err
		}

		logger.Log.Info("Seed data loaded",
			zap.Int("courses", len(courses)),
			zap.Int("assessments", len(assessments)),
			zap.Int("users", len(users)))
		return nil
	})
}
